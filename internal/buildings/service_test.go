package buildings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

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

	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{db: db, svc: svc}
}

func admin() scope.Principal {
	return scope.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestBuildingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()

	building, err := f.svc.Create(ctx, actor, CreateBuildingInput{
		Name:      "  North Tower ",
		Address:   "1 Main St",
		Amenities: []string{"gym", "parking"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if building.Name != "North Tower" {
		t.Fatalf("expected trimmed name, got %q", building.Name)
	}
	if building.Status != enums.BuildingStatusActive {
		t.Fatalf("expected new buildings ACTIVE, got %s", building.Status)
	}

	address := "2 Side St"
	updated, err := f.svc.Update(ctx, actor, building.ID, UpdateBuildingInput{Address: &address})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Address != address {
		t.Fatalf("expected address %q, got %q", address, updated.Address)
	}

	if err := f.svc.Delete(ctx, actor, building.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetByID(ctx, actor, building.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCreateRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	manager := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager, BuildingIDs: []uuid.UUID{uuid.New()}}
	_, err := f.svc.Create(ctx, manager, CreateBuildingInput{Name: "X", Address: "Y"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeleteBlockedByActiveContracts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()

	building, err := f.svc.Create(ctx, actor, CreateBuildingInput{Name: "Busy", Address: "3 Main St"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	floor := &models.Floor{ID: uuid.New(), BuildingID: building.ID, FloorNumber: 1, Status: enums.FloorStatusActive}
	apartment := &models.Apartment{ID: uuid.New(), FloorID: floor.ID, RoomNumber: "101", Status: enums.ApartmentStatusRented, Bedrooms: 1}
	contract := &models.Contract{
		ID:             uuid.New(),
		ContractNumber: "CT-20260101-001",
		ApartmentID:    apartment.ID,
		ResidentID:     uuid.New(),
		Type:           enums.ContractTypeRental,
		Status:         enums.ContractStatusActive,
		SignedDate:     time.Now(),
	}
	for _, record := range []any{floor, apartment, contract} {
		if err := f.db.Create(record).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	err = f.svc.Delete(ctx, actor, building.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// terminating the contract unblocks deletion
	if err := f.db.Model(contract).Update("status", enums.ContractStatusTerminated).Error; err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := f.svc.Delete(ctx, actor, building.ID); err != nil {
		t.Fatalf("delete after terminate: %v", err)
	}
}

func TestListAndGetHonorScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()

	visible, err := f.svc.Create(ctx, actor, CreateBuildingInput{Name: "Visible", Address: "4 Main St"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	hidden, err := f.svc.Create(ctx, actor, CreateBuildingInput{Name: "Hidden", Address: "5 Main St"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	manager := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager, BuildingIDs: []uuid.UUID{visible.ID}}
	listed, err := f.svc.List(ctx, manager)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != visible.ID {
		t.Fatalf("expected only the assigned building, got %+v", listed)
	}

	if _, err := f.svc.GetByID(ctx, manager, hidden.ID); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden outside scope, got %v", err)
	}
	if _, err := f.svc.Update(ctx, manager, hidden.ID, UpdateBuildingInput{}); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden update outside scope, got %v", err)
	}
}
