package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

// ApartmentRef is the slice of apartment state the lifecycle needs: identity,
// current occupancy, and the owning building for scope checks.
type ApartmentRef struct {
	ID         uuid.UUID             `gorm:"column:id"`
	FloorID    uuid.UUID             `gorm:"column:floor_id"`
	BuildingID uuid.UUID             `gorm:"column:building_id"`
	Status     enums.ApartmentStatus `gorm:"column:status"`
}

// Repository manages persistence for contracts. Apartment status flips that
// belong to a lifecycle transition are issued here so they share the
// contract's transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contract *models.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, s scope.Scope, includeTerminated bool) ([]models.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContractStatus) (int64, error)
	UpdateEndDate(ctx context.Context, id uuid.UUID, endDate *time.Time) (int64, error)
	MarkDeleted(ctx context.Context, id uuid.UUID) (int64, error)
	HasActiveForApartment(ctx context.Context, apartmentID uuid.UUID) (bool, error)
	FindApartmentRef(ctx context.Context, apartmentID uuid.UUID) (*ApartmentRef, error)
	UpdateApartmentStatus(ctx context.Context, apartmentID uuid.UUID, status enums.ApartmentStatus) (int64, error)
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	ResidentExists(ctx context.Context, residentID uuid.UUID) (bool, error)
	ListExpiredActive(ctx context.Context, cutoff time.Time) ([]models.Contract, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, contract *models.Contract) error {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Where("id = ? AND NOT is_deleted", id).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *repository) List(ctx context.Context, s scope.Scope, includeTerminated bool) ([]models.Contract, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("NOT contracts.is_deleted")
	if !includeTerminated {
		query = query.Where("contracts.status = ?", enums.ContractStatusActive)
	}
	query = s.FilterContracts(query).Order("contracts.signed_date DESC")

	var contracts []models.Contract
	if err := query.Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ContractStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ? AND NOT is_deleted", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repository) UpdateEndDate(ctx context.Context, id uuid.UUID, endDate *time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ? AND NOT is_deleted", id).
		Update("end_date", endDate)
	return result.RowsAffected, result.Error
}

func (r *repository) MarkDeleted(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("id = ? AND NOT is_deleted", id).
		Update("is_deleted", true)
	return result.RowsAffected, result.Error
}

func (r *repository) HasActiveForApartment(ctx context.Context, apartmentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("apartment_id = ? AND status = ? AND NOT is_deleted", apartmentID, enums.ContractStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindApartmentRef(ctx context.Context, apartmentID uuid.UUID) (*ApartmentRef, error) {
	var ref ApartmentRef
	err := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Select("apartments.id, apartments.floor_id, apartments.status, floors.building_id AS building_id").
		Joins("JOIN floors ON floors.id = apartments.floor_id").
		Where("apartments.id = ? AND NOT apartments.is_deleted", apartmentID).
		First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *repository) UpdateApartmentStatus(ctx context.Context, apartmentID uuid.UUID, status enums.ApartmentStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("id = ? AND NOT is_deleted", apartmentID).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("contract_number LIKE ?", prefix+"%").
		Order("contract_number DESC").
		Limit(1).
		Pluck("contract_number", &numbers).Error
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

func (r *repository) ListExpiredActive(ctx context.Context, cutoff time.Time) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.WithContext(ctx).
		Where("status = ? AND NOT is_deleted", enums.ContractStatusActive).
		Where("type = ? AND end_date IS NOT NULL AND end_date < ?", enums.ContractTypeRental, cutoff).
		Order("end_date").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repository) ResidentExists(ctx context.Context, residentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Resident{}).
		Where("id = ? AND NOT is_deleted", residentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
