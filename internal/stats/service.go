package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

const expiryHorizonDays = 30

// Overview is the portfolio dashboard, computed over the caller's scope.
type Overview struct {
	Buildings         int64                           `json:"buildings"`
	Apartments        map[enums.ApartmentStatus]int64 `json:"apartments"`
	OccupancyRate     float64                         `json:"occupancy_rate"`
	ActiveContracts   int64                           `json:"active_contracts"`
	ContractsExpiring int64                           `json:"contracts_expiring"`
	PendingInvoices   int64                           `json:"pending_invoices"`
	OverdueInvoices   int64                           `json:"overdue_invoices"`
	OutstandingAmount decimal.Decimal                 `json:"outstanding_amount"`
	ExpiryHorizonDays int                             `json:"expiry_horizon_days"`
}

// BuildingOccupancy is the per-building apartment breakdown.
type BuildingOccupancy struct {
	BuildingID    uuid.UUID                       `json:"building_id"`
	Apartments    map[enums.ApartmentStatus]int64 `json:"apartments"`
	OccupancyRate float64                         `json:"occupancy_rate"`
}

// Service computes read-only projections; it never mutates domain state.
type Service interface {
	Overview(ctx context.Context, actor scope.Principal) (*Overview, error)
	BuildingOccupancy(ctx context.Context, actor scope.Principal, buildingID uuid.UUID) (*BuildingOccupancy, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a stats service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Overview(ctx context.Context, actor scope.Principal) (*Overview, error) {
	sc := actor.Scope()
	if sc.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller has no building access")
	}

	buildings, err := s.repo.CountBuildings(ctx, sc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count buildings")
	}
	apartmentCounts, err := s.repo.ApartmentStatusCounts(ctx, sc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count apartments")
	}
	activeContracts, err := s.repo.CountActiveContracts(ctx, sc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count contracts")
	}
	cutoff := s.now().AddDate(0, 0, expiryHorizonDays)
	expiring, err := s.repo.CountContractsExpiringBefore(ctx, sc, cutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count expiring contracts")
	}
	invoiceTotals, err := s.repo.InvoiceTotals(ctx, sc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoice totals")
	}

	apartments, rate := occupancy(apartmentCounts)
	overview := &Overview{
		Buildings:         buildings,
		Apartments:        apartments,
		OccupancyRate:     rate,
		ActiveContracts:   activeContracts,
		ContractsExpiring: expiring,
		OutstandingAmount: decimal.Zero,
		ExpiryHorizonDays: expiryHorizonDays,
	}
	for _, total := range invoiceTotals {
		switch total.Status {
		case enums.InvoiceStatusPending:
			overview.PendingInvoices = total.Count
			overview.OutstandingAmount = overview.OutstandingAmount.Add(total.Amount)
		case enums.InvoiceStatusOverdue:
			overview.OverdueInvoices = total.Count
			overview.OutstandingAmount = overview.OutstandingAmount.Add(total.Amount)
		}
	}
	return overview, nil
}

func (s *service) BuildingOccupancy(ctx context.Context, actor scope.Principal, buildingID uuid.UUID) (*BuildingOccupancy, error) {
	if buildingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "building id is required")
	}
	if !actor.Scope().AllowsBuilding(buildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "building outside caller scope")
	}

	counts, err := s.repo.ApartmentStatusCountsForBuilding(ctx, buildingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count apartments")
	}
	apartments, rate := occupancy(counts)
	return &BuildingOccupancy{
		BuildingID:    buildingID,
		Apartments:    apartments,
		OccupancyRate: rate,
	}, nil
}

// occupancy folds the raw buckets into a complete map and an occupied
// fraction. Maintenance units count toward the denominator.
func occupancy(counts []ApartmentStatusCount) (map[enums.ApartmentStatus]int64, float64) {
	apartments := map[enums.ApartmentStatus]int64{
		enums.ApartmentStatusAvailable:   0,
		enums.ApartmentStatusRented:      0,
		enums.ApartmentStatusOwned:       0,
		enums.ApartmentStatusMaintenance: 0,
	}
	var total, occupied int64
	for _, bucket := range counts {
		apartments[bucket.Status] = bucket.Count
		total += bucket.Count
		if bucket.Status.IsOccupied() {
			occupied += bucket.Count
		}
	}
	if total == 0 {
		return apartments, 0
	}
	return apartments, float64(occupied) / float64(total)
}
