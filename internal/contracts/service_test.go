package contracts

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/estatedesk/estatedesk-backend/internal/history"
	"github.com/estatedesk/estatedesk-backend/pkg/config"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/logger"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

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
	if err := db.AutoMigrate(
		&models.Building{}, &models.Floor{}, &models.Apartment{},
		&models.Resident{}, &models.Contract{}, &models.ContractHistory{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	logg := logger.New(logger.Options{ServiceName: "contracts-test", Output: io.Discard})
	svc, err := NewService(
		NewRepository(db),
		history.NewRepository(db),
		gormTxRunner{db: db},
		config.ContractsConfig{NumberPrefix: "CT"},
		logg,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{db: db, svc: svc}
}

type seeded struct {
	buildingID  uuid.UUID
	apartmentID uuid.UUID
	residentID  uuid.UUID
}

func (f *fixture) seed(t *testing.T) seeded {
	t.Helper()
	building := &models.Building{ID: uuid.New(), Name: "B-" + uuid.NewString()[:8], Address: "1 Main", Status: enums.BuildingStatusActive}
	if err := f.db.Create(building).Error; err != nil {
		t.Fatalf("create building: %v", err)
	}
	floor := &models.Floor{ID: uuid.New(), BuildingID: building.ID, FloorNumber: 1, Status: enums.FloorStatusActive}
	if err := f.db.Create(floor).Error; err != nil {
		t.Fatalf("create floor: %v", err)
	}
	apartment := &models.Apartment{ID: uuid.New(), FloorID: floor.ID, RoomNumber: "101", Status: enums.ApartmentStatusAvailable, Bedrooms: 2}
	if err := f.db.Create(apartment).Error; err != nil {
		t.Fatalf("create apartment: %v", err)
	}
	resident := &models.Resident{ID: uuid.New(), FullName: "Dana Example"}
	if err := f.db.Create(resident).Error; err != nil {
		t.Fatalf("create resident: %v", err)
	}
	return seeded{buildingID: building.ID, apartmentID: apartment.ID, residentID: resident.ID}
}

func (f *fixture) apartmentStatus(t *testing.T, id uuid.UUID) enums.ApartmentStatus {
	t.Helper()
	var apartment models.Apartment
	if err := f.db.First(&apartment, "id = ?", id).Error; err != nil {
		t.Fatalf("load apartment: %v", err)
	}
	return apartment.Status
}

func (f *fixture) historyActions(t *testing.T, contractID uuid.UUID) []enums.HistoryAction {
	t.Helper()
	var entries []models.ContractHistory
	if err := f.db.Where("contract_id = ?", contractID).Order("created_at").Find(&entries).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	actions := make([]enums.HistoryAction, len(entries))
	for i, entry := range entries {
		actions[i] = entry.Action
	}
	return actions
}

func admin() scope.Principal {
	return scope.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func rentalInput(s seeded) CreateContractInput {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return CreateContractInput{
		ApartmentID: s.apartmentID,
		ResidentID:  s.residentID,
		Type:        enums.ContractTypeRental,
		SignedDate:  start,
		StartDate:   &start,
		EndDate:     &end,
		MonthlyRent: decimal.NewFromInt(1200),
		Deposit:     decimal.NewFromInt(2400),
	}
}

func TestCreateRentalContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	contract, err := f.svc.Create(ctx, admin(), rentalInput(s))
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}

	if contract.Status != enums.ContractStatusActive {
		t.Fatalf("expected ACTIVE contract, got %s", contract.Status)
	}
	if got := f.apartmentStatus(t, s.apartmentID); got != enums.ApartmentStatusRented {
		t.Fatalf("expected apartment RENTED, got %s", got)
	}

	actions := f.historyActions(t, contract.ID)
	if len(actions) != 1 || actions[0] != enums.HistoryActionCreated {
		t.Fatalf("expected one CREATED entry, got %v", actions)
	}

	today := time.Now().Format("20060102")
	wantPrefix := "CT-" + today + "-"
	if contract.ContractNumber != wantPrefix+"001" {
		t.Fatalf("expected first number %s001, got %s", wantPrefix, contract.ContractNumber)
	}
}

func TestCreateOwnershipContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	contract, err := f.svc.Create(ctx, admin(), CreateContractInput{
		ApartmentID: s.apartmentID,
		ResidentID:  s.residentID,
		Type:        enums.ContractTypeOwnership,
		SignedDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		MonthlyRent: decimal.Zero,
		Deposit:     decimal.Zero,
	})
	if err != nil {
		t.Fatalf("create ownership contract: %v", err)
	}
	if got := f.apartmentStatus(t, s.apartmentID); got != enums.ApartmentStatusOwned {
		t.Fatalf("expected apartment OWNED, got %s", got)
	}
	if contract.StartDate != nil || contract.EndDate != nil {
		t.Fatal("ownership contract must not carry dates")
	}
}

func TestCreateOwnershipWithDatesRejected(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)

	input := rentalInput(s)
	input.Type = enums.ContractTypeOwnership
	_, err := f.svc.Create(context.Background(), admin(), input)
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOnOccupiedApartmentConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	if _, err := f.svc.Create(ctx, admin(), rentalInput(s)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	second := &models.Resident{ID: uuid.New(), FullName: "Sam Example"}
	if err := f.db.Create(second).Error; err != nil {
		t.Fatalf("create resident: %v", err)
	}
	input := rentalInput(s)
	input.ResidentID = second.ID

	_, err := f.svc.Create(ctx, admin(), input)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateOnMaintenanceApartmentConflicts(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	if err := f.db.Model(&models.Apartment{}).Where("id = ?", s.apartmentID).
		Update("status", enums.ApartmentStatusMaintenance).Error; err != nil {
		t.Fatalf("set maintenance: %v", err)
	}

	_, err := f.svc.Create(context.Background(), admin(), rentalInput(s))
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRenewRentalContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	contract, err := f.svc.Create(ctx, admin(), rentalInput(s))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newEnd := time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC)
	renewed, err := f.svc.Renew(ctx, admin(), contract.ID, newEnd)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if renewed.EndDate == nil || !renewed.EndDate.Equal(newEnd) {
		t.Fatalf("expected end date %s, got %v", newEnd, renewed.EndDate)
	}

	// renewal never touches the apartment
	if got := f.apartmentStatus(t, s.apartmentID); got != enums.ApartmentStatusRented {
		t.Fatalf("expected apartment still RENTED, got %s", got)
	}

	var entry models.ContractHistory
	if err := f.db.Where("contract_id = ? AND action = ?", contract.ID, enums.HistoryActionRenewed).First(&entry).Error; err != nil {
		t.Fatalf("load renewal history: %v", err)
	}
	if entry.OldEndDate == nil || entry.NewEndDate == nil {
		t.Fatal("renewal history must capture old and new end dates")
	}
	if !entry.NewEndDate.Equal(newEnd) {
		t.Fatalf("expected new end date %s, got %s", newEnd, entry.NewEndDate)
	}
}

func TestRenewOwnershipHardRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	contract, err := f.svc.Create(ctx, admin(), CreateContractInput{
		ApartmentID: s.apartmentID,
		ResidentID:  s.residentID,
		Type:        enums.ContractTypeOwnership,
		SignedDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Renew(ctx, admin(), contract.ID, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// no mutation, no history
	var reloaded models.Contract
	if err := f.db.First(&reloaded, "id = ?", contract.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.EndDate != nil {
		t.Fatal("ownership contract must remain without end date")
	}
	actions := f.historyActions(t, contract.ID)
	if len(actions) != 1 {
		t.Fatalf("expected only the CREATED entry, got %v", actions)
	}
}

func TestTerminateContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	contract, err := f.svc.Create(ctx, admin(), rentalInput(s))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Terminate(ctx, admin(), contract.ID, "tenant moved out"); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	var reloaded models.Contract
	if err := f.db.First(&reloaded, "id = ?", contract.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != enums.ContractStatusTerminated {
		t.Fatalf("expected TERMINATED, got %s", reloaded.Status)
	}
	if got := f.apartmentStatus(t, s.apartmentID); got != enums.ApartmentStatusAvailable {
		t.Fatalf("expected apartment AVAILABLE, got %s", got)
	}
	actions := f.historyActions(t, contract.ID)
	if len(actions) != 2 || actions[1] != enums.HistoryActionTerminated {
		t.Fatalf("expected TERMINATED history entry, got %v", actions)
	}

	if err := f.svc.Terminate(ctx, admin(), contract.ID, "again"); pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double terminate, got %v", err)
	}
}

func TestSoftDeleteContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	contract, err := f.svc.Create(ctx, admin(), rentalInput(s))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.SoftDelete(ctx, admin(), contract.ID, "entered in error"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	var reloaded models.Contract
	if err := f.db.First(&reloaded, "id = ?", contract.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsDeleted {
		t.Fatal("expected contract flagged deleted")
	}
	// deletion preserves the last status for historical queries
	if reloaded.Status != enums.ContractStatusActive {
		t.Fatalf("expected last status preserved, got %s", reloaded.Status)
	}
	if got := f.apartmentStatus(t, s.apartmentID); got != enums.ApartmentStatusAvailable {
		t.Fatalf("expected apartment AVAILABLE, got %s", got)
	}
	actions := f.historyActions(t, contract.ID)
	if len(actions) != 2 || actions[1] != enums.HistoryActionDeleted {
		t.Fatalf("expected DELETED history entry, got %v", actions)
	}

	// deleted contracts vanish from default reads
	if _, err := f.svc.GetByID(ctx, admin(), contract.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// and the apartment is free for a new contract
	if _, err := f.svc.Create(ctx, admin(), rentalInput(s)); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
}

func TestGenerateContractNumberPreviewRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	first, err := f.svc.GenerateContractNumber(ctx)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	second, err := f.svc.GenerateContractNumber(ctx)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	// a preview reserves nothing: back-to-back calls agree
	if first != second {
		t.Fatalf("expected identical previews, got %s and %s", first, second)
	}

	contract, err := f.svc.Create(ctx, admin(), rentalInput(s))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if contract.ContractNumber != first {
		t.Fatalf("expected create to assign previewed number %s, got %s", first, contract.ContractNumber)
	}

	next, err := f.svc.GenerateContractNumber(ctx)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if next == first {
		t.Fatal("expected sequence to advance after insert")
	}
}

func TestContractScopeDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.seed(t)

	manager := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager, BuildingIDs: []uuid.UUID{uuid.New()}}
	_, err := f.svc.Create(ctx, manager, rentalInput(s))
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	inScope := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager, BuildingIDs: []uuid.UUID{s.buildingID}}
	if _, err := f.svc.Create(ctx, inScope, rentalInput(s)); err != nil {
		t.Fatalf("in-scope create: %v", err)
	}
}

func TestExpireContracts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := admin()
	s := f.seed(t)

	contract, err := f.svc.Create(ctx, actor, rentalInput(s))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// end date still in the future: nothing expires
	future := time.Now().AddDate(1, 0, 0)
	if err := f.db.Model(contract).Update("end_date", future).Error; err != nil {
		t.Fatalf("set end date: %v", err)
	}
	terminated, err := f.svc.ExpireContracts(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if terminated != 0 {
		t.Fatalf("expected 0 expired, got %d", terminated)
	}

	past := time.Now().AddDate(0, 0, -1)
	if err := f.db.Model(contract).Update("end_date", past).Error; err != nil {
		t.Fatalf("backdate end date: %v", err)
	}
	terminated, err = f.svc.ExpireContracts(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if terminated != 1 {
		t.Fatalf("expected 1 expired, got %d", terminated)
	}

	reloaded, err := f.svc.GetByID(ctx, actor, contract.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != enums.ContractStatusTerminated {
		t.Fatalf("expected TERMINATED, got %s", reloaded.Status)
	}
	if got := f.apartmentStatus(t, s.apartmentID); got != enums.ApartmentStatusAvailable {
		t.Fatalf("expected apartment freed, got %s", got)
	}
	actions := f.historyActions(t, contract.ID)
	if actions[len(actions)-1] != enums.HistoryActionTerminated {
		t.Fatalf("expected TERMINATED history entry, got %v", actions)
	}

	// second sweep is a no-op
	terminated, err = f.svc.ExpireContracts(ctx)
	if err != nil {
		t.Fatalf("expire again: %v", err)
	}
	if terminated != 0 {
		t.Fatalf("expected 0 on rerun, got %d", terminated)
	}
}
