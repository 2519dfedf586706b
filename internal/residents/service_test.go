package residents

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

type fakeContracts struct {
	contracts map[uuid.UUID]*models.Contract
}

func (f *fakeContracts) GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Contract, error) {
	contract, ok := f.contracts[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	return contract, nil
}

func newTestService(t *testing.T) (Service, *fakeContracts, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Resident{}, &models.HouseholdMember{}, &models.Contract{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	contracts := &fakeContracts{contracts: make(map[uuid.UUID]*models.Contract)}
	svc, err := NewService(NewRepository(db), contracts)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, contracts, db
}

func admin() scope.Principal {
	return scope.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestResidentLifecycle(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	actor := admin()

	resident, err := svc.Create(ctx, actor, CreateResidentInput{
		FullName: "  Dana Example  ",
		Email:    "dana@example.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resident.FullName != "Dana Example" {
		t.Fatalf("expected trimmed name, got %q", resident.FullName)
	}

	phone := "555-0100"
	updated, err := svc.Update(ctx, actor, resident.ID, UpdateResidentInput{Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != phone {
		t.Fatalf("expected phone %q, got %q", phone, updated.Phone)
	}

	if err := svc.Delete(ctx, actor, resident.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, actor, resident.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	_ = db
}

func TestDeleteResidentWithContractsBlocked(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	actor := admin()

	resident, err := svc.Create(ctx, actor, CreateResidentInput{FullName: "Sam Example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	contract := &models.Contract{
		ID:             uuid.New(),
		ContractNumber: "CT-20260101-001",
		ApartmentID:    uuid.New(),
		ResidentID:     resident.ID,
		Type:           enums.ContractTypeRental,
		Status:         enums.ContractStatusTerminated,
		SignedDate:     time.Now(),
	}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("seed contract: %v", err)
	}

	err = svc.Delete(ctx, actor, resident.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateResidentValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, admin(), CreateResidentInput{}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}
	if _, err := svc.Create(ctx, admin(), CreateResidentInput{FullName: "X", Email: "nope"}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad email, got %v", err)
	}

	nobody := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager}
	if _, err := svc.Create(ctx, nobody, CreateResidentInput{FullName: "X"}); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for empty scope, got %v", err)
	}
}

func TestHouseholdMemberMoveOut(t *testing.T) {
	svc, contracts, _ := newTestService(t)
	ctx := context.Background()
	actor := admin()

	contractID := uuid.New()
	contracts.contracts[contractID] = &models.Contract{
		ID:     contractID,
		Status: enums.ContractStatusActive,
		Type:   enums.ContractTypeRental,
	}

	member, err := svc.AddMember(ctx, actor, AddMemberInput{
		ContractID:   contractID,
		FullName:     "Junior Example",
		Relationship: "child",
	})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if !member.IsActive {
		t.Fatal("expected member active after move in")
	}

	if err := svc.MoveOutMember(ctx, actor, member.ID); err != nil {
		t.Fatalf("move out: %v", err)
	}

	members, err := svc.ListMembers(ctx, actor, contractID, true)
	if err != nil {
		t.Fatalf("list active members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no active members, got %d", len(members))
	}

	all, err := svc.ListMembers(ctx, actor, contractID, false)
	if err != nil {
		t.Fatalf("list all members: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 member total, got %d", len(all))
	}
	if all[0].MovedOutAt == nil {
		t.Fatal("expected moved_out_at recorded")
	}

	// moving out twice is a state conflict
	if err := svc.MoveOutMember(ctx, actor, member.ID); pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// contract untouched by member churn
	if contracts.contracts[contractID].Status != enums.ContractStatusActive {
		t.Fatal("contract must not change when members move out")
	}
}

func TestAddMemberInactiveContract(t *testing.T) {
	svc, contracts, _ := newTestService(t)
	ctx := context.Background()

	contractID := uuid.New()
	contracts.contracts[contractID] = &models.Contract{
		ID:     contractID,
		Status: enums.ContractStatusTerminated,
	}

	_, err := svc.AddMember(ctx, admin(), AddMemberInput{ContractID: contractID, FullName: "Junior"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
