package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

func newTestService(t *testing.T) (Service, *fakeContracts) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Service{}, &models.ContractService{}); err != nil {
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
	return svc, contracts
}

func admin() scope.Principal {
	return scope.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestCatalogLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	actor := admin()

	created, err := svc.Create(ctx, actor, CreateServiceInput{
		Name:         "Parking",
		MonthlyPrice: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Create(ctx, actor, CreateServiceInput{
		Name:         "Parking",
		MonthlyPrice: decimal.NewFromInt(60),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}

	price := decimal.NewFromInt(75)
	updated, err := svc.Update(ctx, actor, created.ID, UpdateServiceInput{MonthlyPrice: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.MonthlyPrice.Equal(price) {
		t.Fatalf("expected price %s, got %s", price, updated.MonthlyPrice)
	}

	if err := svc.Deactivate(ctx, actor, created.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, err := svc.List(ctx, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active services, got %d", len(active))
	}
}

func TestCatalogRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	manager := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleManager, BuildingIDs: []uuid.UUID{uuid.New()}}

	_, err := svc.Create(ctx, manager, CreateServiceInput{Name: "Gym", MonthlyPrice: decimal.NewFromInt(30)})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSubscribeSnapshotsPrice(t *testing.T) {
	svc, contracts := newTestService(t)
	ctx := context.Background()
	actor := admin()

	contractID := uuid.New()
	contracts.contracts[contractID] = &models.Contract{ID: contractID, Status: enums.ContractStatusActive}

	catalog, err := svc.Create(ctx, actor, CreateServiceInput{Name: "Cleaning", MonthlyPrice: decimal.NewFromInt(40)})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	sub, err := svc.Subscribe(ctx, actor, contractID, catalog.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !sub.Price.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected snapshotted price 40, got %s", sub.Price)
	}

	// raising the catalog price must not reprice the existing subscription
	newPrice := decimal.NewFromInt(55)
	if _, err := svc.Update(ctx, actor, catalog.ID, UpdateServiceInput{MonthlyPrice: &newPrice}); err != nil {
		t.Fatalf("update price: %v", err)
	}
	subs, err := svc.ListSubscriptions(ctx, actor, contractID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 || !subs[0].Price.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected one subscription at 40, got %+v", subs)
	}

	_, err = svc.Subscribe(ctx, actor, contractID, catalog.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate subscription, got %v", err)
	}
}

func TestSubscribeGuards(t *testing.T) {
	svc, contracts := newTestService(t)
	ctx := context.Background()
	actor := admin()

	terminated := uuid.New()
	contracts.contracts[terminated] = &models.Contract{ID: terminated, Status: enums.ContractStatusTerminated}

	catalog, err := svc.Create(ctx, actor, CreateServiceInput{Name: "Laundry", MonthlyPrice: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	_, err = svc.Subscribe(ctx, actor, terminated, catalog.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for terminated contract, got %v", err)
	}

	active := uuid.New()
	contracts.contracts[active] = &models.Contract{ID: active, Status: enums.ContractStatusActive}
	if err := svc.Deactivate(ctx, actor, catalog.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = svc.Subscribe(ctx, actor, active, catalog.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for inactive service, got %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	svc, contracts := newTestService(t)
	ctx := context.Background()
	actor := admin()

	contractID := uuid.New()
	contracts.contracts[contractID] = &models.Contract{ID: contractID, Status: enums.ContractStatusActive}

	catalog, err := svc.Create(ctx, actor, CreateServiceInput{Name: "Internet", MonthlyPrice: decimal.NewFromInt(25)})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	if _, err := svc.Subscribe(ctx, actor, contractID, catalog.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := svc.Unsubscribe(ctx, actor, contractID, catalog.ID); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	err = svc.Unsubscribe(ctx, actor, contractID, catalog.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second unsubscribe, got %v", err)
	}
}
