package floors

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/estatedesk/estatedesk-backend/internal/buildings"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type fixture struct {
	db  *gorm.DB
	svc Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Building{},
		&models.Floor{},
		&models.Apartment{},
		&models.Contract{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	svc, err := NewService(NewRepository(db), buildings.NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{db: db, svc: svc}
}

func (f *fixture) seedBuilding(t *testing.T, name string) uuid.UUID {
	t.Helper()
	building := &models.Building{ID: uuid.New(), Name: name, Address: "1 Main St", Status: enums.BuildingStatusActive}
	if err := f.db.Create(building).Error; err != nil {
		t.Fatalf("seed building: %v", err)
	}
	return building.ID
}

func admin() scope.Principal {
	return scope.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestFloorLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()
	buildingID := f.seedBuilding(t, "North")

	floor, err := f.svc.Create(ctx, actor, CreateFloorInput{BuildingID: buildingID, FloorNumber: 2, Name: "Second"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if floor.Status != enums.FloorStatusActive {
		t.Fatalf("expected new floors ACTIVE, got %s", floor.Status)
	}

	_, err = f.svc.Create(ctx, actor, CreateFloorInput{BuildingID: buildingID, FloorNumber: 2})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate floor number, got %v", err)
	}

	renamed, err := f.svc.Rename(ctx, actor, floor.ID, " Mezzanine ")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Mezzanine" {
		t.Fatalf("expected trimmed name, got %q", renamed.Name)
	}

	if err := f.svc.Delete(ctx, actor, floor.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetByID(ctx, actor, floor.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// the freed floor number can be reused
	if _, err := f.svc.Create(ctx, actor, CreateFloorInput{BuildingID: buildingID, FloorNumber: 2}); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestCreateFloorMissingBuilding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, admin(), CreateFloorInput{BuildingID: uuid.New(), FloorNumber: 1})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for missing building, got %v", err)
	}
}

func TestDeleteFloorBlockedByApartments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()
	buildingID := f.seedBuilding(t, "South")

	floor, err := f.svc.Create(ctx, actor, CreateFloorInput{BuildingID: buildingID, FloorNumber: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	apartment := &models.Apartment{ID: uuid.New(), FloorID: floor.ID, RoomNumber: "101", Status: enums.ApartmentStatusAvailable, Bedrooms: 1}
	if err := f.db.Create(apartment).Error; err != nil {
		t.Fatalf("seed apartment: %v", err)
	}

	err = f.svc.Delete(ctx, actor, floor.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// soft-deleting the apartment unblocks the floor
	if err := f.db.Model(apartment).Update("is_deleted", true).Error; err != nil {
		t.Fatalf("soft delete apartment: %v", err)
	}
	if err := f.svc.Delete(ctx, actor, floor.ID); err != nil {
		t.Fatalf("delete after clearing apartments: %v", err)
	}
}

func TestFloorScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()
	buildingID := f.seedBuilding(t, "East")
	otherID := f.seedBuilding(t, "West")

	floor, err := f.svc.Create(ctx, actor, CreateFloorInput{BuildingID: buildingID, FloorNumber: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	outsider := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager, BuildingIDs: []uuid.UUID{otherID}}
	if _, err := f.svc.GetByID(ctx, outsider, floor.ID); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.ListByBuilding(ctx, outsider, buildingID); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden list, got %v", err)
	}
	if _, err := f.svc.Create(ctx, outsider, CreateFloorInput{BuildingID: buildingID, FloorNumber: 3}); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden create, got %v", err)
	}

	insider := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager, BuildingIDs: []uuid.UUID{buildingID}}
	floors, err := f.svc.ListByBuilding(ctx, insider, buildingID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(floors) != 1 {
		t.Fatalf("expected 1 floor, got %d", len(floors))
	}
}
