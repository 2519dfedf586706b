package stats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

// ApartmentStatusCount is one bucket of the occupancy breakdown.
type ApartmentStatusCount struct {
	Status enums.ApartmentStatus `gorm:"column:status"`
	Count  int64                 `gorm:"column:count"`
}

// InvoiceStatusTotal is one bucket of the billing breakdown.
type InvoiceStatusTotal struct {
	Status enums.InvoiceStatus `gorm:"column:status"`
	Count  int64               `gorm:"column:count"`
	Amount decimal.Decimal     `gorm:"column:amount"`
}

// Repository runs the read-only aggregate queries behind the dashboard.
type Repository interface {
	CountBuildings(ctx context.Context, s scope.Scope) (int64, error)
	ApartmentStatusCounts(ctx context.Context, s scope.Scope) ([]ApartmentStatusCount, error)
	ApartmentStatusCountsForBuilding(ctx context.Context, buildingID uuid.UUID) ([]ApartmentStatusCount, error)
	CountActiveContracts(ctx context.Context, s scope.Scope) (int64, error)
	CountContractsExpiringBefore(ctx context.Context, s scope.Scope, cutoff time.Time) (int64, error)
	InvoiceTotals(ctx context.Context, s scope.Scope) ([]InvoiceStatusTotal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountBuildings(ctx context.Context, s scope.Scope) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Building{}).
		Where("NOT buildings.is_deleted")

	var count int64
	err := s.FilterBuildings(query).Count(&count).Error
	return count, err
}

func (r *repository) ApartmentStatusCounts(ctx context.Context, s scope.Scope) ([]ApartmentStatusCount, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Select("apartments.status AS status, COUNT(*) AS count").
		Where("NOT apartments.is_deleted").
		Group("apartments.status")

	var counts []ApartmentStatusCount
	if err := s.FilterApartments(query).Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repository) ApartmentStatusCountsForBuilding(ctx context.Context, buildingID uuid.UUID) ([]ApartmentStatusCount, error) {
	var counts []ApartmentStatusCount
	err := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Select("apartments.status AS status, COUNT(*) AS count").
		Joins("JOIN floors ON floors.id = apartments.floor_id").
		Where("floors.building_id = ? AND NOT apartments.is_deleted", buildingID).
		Group("apartments.status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *repository) CountActiveContracts(ctx context.Context, s scope.Scope) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("contracts.status = ? AND NOT contracts.is_deleted", enums.ContractStatusActive)

	var count int64
	err := s.FilterContracts(query).Count(&count).Error
	return count, err
}

func (r *repository) CountContractsExpiringBefore(ctx context.Context, s scope.Scope, cutoff time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("contracts.status = ? AND NOT contracts.is_deleted", enums.ContractStatusActive).
		Where("contracts.end_date IS NOT NULL AND contracts.end_date <= ?", cutoff)

	var count int64
	err := s.FilterContracts(query).Count(&count).Error
	return count, err
}

func (r *repository) InvoiceTotals(ctx context.Context, s scope.Scope) ([]InvoiceStatusTotal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("invoices.status AS status, COUNT(*) AS count, COALESCE(SUM(invoices.total_amount), 0) AS amount").
		Group("invoices.status")

	var totals []InvoiceStatusTotal
	if err := s.FilterInvoices(query).Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}
