package apartments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/estatedesk/estatedesk-backend/internal/floors"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/pagination"
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

	svc, err := NewService(NewRepository(db), floors.NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{db: db, svc: svc}
}

func (f *fixture) seedFloor(t *testing.T, name string) (buildingID, floorID uuid.UUID) {
	t.Helper()
	building := &models.Building{ID: uuid.New(), Name: name, Address: "1 Main St", Status: enums.BuildingStatusActive}
	floor := &models.Floor{ID: uuid.New(), BuildingID: building.ID, FloorNumber: 1, Status: enums.FloorStatusActive}
	if err := f.db.Create(building).Error; err != nil {
		t.Fatalf("seed building: %v", err)
	}
	if err := f.db.Create(floor).Error; err != nil {
		t.Fatalf("seed floor: %v", err)
	}
	return building.ID, floor.ID
}

func admin() scope.Principal {
	return scope.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestApartmentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()
	_, floorID := f.seedFloor(t, "North")

	apartment, err := f.svc.Create(ctx, actor, CreateApartmentInput{
		FloorID:    floorID,
		RoomNumber: " 101 ",
		AreaSqm:    decimal.NewFromFloat(54.5),
		Bedrooms:   2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if apartment.RoomNumber != "101" {
		t.Fatalf("expected trimmed room number, got %q", apartment.RoomNumber)
	}
	if apartment.Status != enums.ApartmentStatusAvailable {
		t.Fatalf("expected new apartments AVAILABLE, got %s", apartment.Status)
	}

	_, err = f.svc.Create(ctx, actor, CreateApartmentInput{FloorID: floorID, RoomNumber: "101", Bedrooms: 1})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate room number, got %v", err)
	}

	bedrooms := 3
	updated, err := f.svc.Update(ctx, actor, apartment.ID, UpdateApartmentInput{Bedrooms: &bedrooms})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Bedrooms != 3 {
		t.Fatalf("expected 3 bedrooms, got %d", updated.Bedrooms)
	}

	if err := f.svc.Delete(ctx, actor, apartment.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetByID(ctx, actor, apartment.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCreateApartmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, floorID := f.seedFloor(t, "South")

	cases := []CreateApartmentInput{
		{FloorID: uuid.Nil, RoomNumber: "101", Bedrooms: 1},
		{FloorID: floorID, RoomNumber: "  ", Bedrooms: 1},
		{FloorID: floorID, RoomNumber: "101", Bedrooms: 0},
		{FloorID: floorID, RoomNumber: "101", Bedrooms: 1, AreaSqm: decimal.NewFromInt(-5)},
	}
	for i, input := range cases {
		if _, err := f.svc.Create(ctx, admin(), input); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestDeleteBlockedByContractHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()
	_, floorID := f.seedFloor(t, "East")

	apartment, err := f.svc.Create(ctx, actor, CreateApartmentInput{FloorID: floorID, RoomNumber: "201", Bedrooms: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	contract := &models.Contract{
		ID:             uuid.New(),
		ContractNumber: "CT-20260101-001",
		ApartmentID:    apartment.ID,
		ResidentID:     uuid.New(),
		Type:           enums.ContractTypeRental,
		Status:         enums.ContractStatusTerminated,
		SignedDate:     time.Now(),
	}
	if err := f.db.Create(contract).Error; err != nil {
		t.Fatalf("seed contract: %v", err)
	}

	// even a terminated contract pins the apartment
	err = f.svc.Delete(ctx, actor, apartment.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()
	_, floorID := f.seedFloor(t, "West")

	for i := 0; i < 5; i++ {
		apartment := &models.Apartment{
			ID:         uuid.New(),
			FloorID:    floorID,
			RoomNumber: fmt.Sprintf("3%02d", i),
			Status:     enums.ApartmentStatusAvailable,
			Bedrooms:   1,
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := f.db.Create(apartment).Error; err != nil {
			t.Fatalf("seed apartment: %v", err)
		}
	}

	first, err := f.svc.List(ctx, actor, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Apartments) != 2 || first.NextCursor == "" {
		t.Fatalf("expected a full first page with cursor, got %d items", len(first.Apartments))
	}

	second, err := f.svc.List(ctx, actor, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Apartments) != 2 {
		t.Fatalf("expected 2 items on second page, got %d", len(second.Apartments))
	}

	seen := map[uuid.UUID]bool{}
	for _, row := range append(first.Apartments, second.Apartments...) {
		if seen[row.ID] {
			t.Fatalf("apartment %s repeated across pages", row.ID)
		}
		seen[row.ID] = true
	}

	third, err := f.svc.List(ctx, actor, pagination.Params{Limit: 2, Cursor: second.NextCursor})
	if err != nil {
		t.Fatalf("third page: %v", err)
	}
	if len(third.Apartments) != 1 || third.NextCursor != "" {
		t.Fatalf("expected final page of 1 without cursor, got %d items cursor=%q", len(third.Apartments), third.NextCursor)
	}
}

func TestApartmentScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()
	_, floorID := f.seedFloor(t, "Center")
	otherBuildingID, _ := f.seedFloor(t, "Elsewhere")

	apartment, err := f.svc.Create(ctx, actor, CreateApartmentInput{FloorID: floorID, RoomNumber: "401", Bedrooms: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	outsider := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager, BuildingIDs: []uuid.UUID{otherBuildingID}}
	if _, err := f.svc.GetByID(ctx, outsider, apartment.ID); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	page, err := f.svc.List(ctx, outsider, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Apartments) != 0 {
		t.Fatalf("expected no visible apartments, got %d", len(page.Apartments))
	}
}
