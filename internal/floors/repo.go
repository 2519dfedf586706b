package floors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Repository manages persistence for floors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, floor *models.Floor) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Floor, error)
	Update(ctx context.Context, floor *models.Floor) error
	SoftDelete(ctx context.Context, id uuid.UUID) (int64, error)
	ListByBuilding(ctx context.Context, buildingID uuid.UUID) ([]models.Floor, error)
	FloorNumberExists(ctx context.Context, buildingID uuid.UUID, floorNumber int) (bool, error)
	CountNonDeletedApartments(ctx context.Context, floorID uuid.UUID) (int64, error)
	CountActiveContracts(ctx context.Context, floorID uuid.UUID) (int64, error)
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

func (r *repository) Create(ctx context.Context, floor *models.Floor) error {
	if floor.ID == uuid.Nil {
		floor.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(floor).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Floor, error) {
	var floor models.Floor
	err := r.db.WithContext(ctx).
		Where("id = ? AND NOT is_deleted", id).
		First(&floor).Error
	if err != nil {
		return nil, err
	}
	return &floor, nil
}

func (r *repository) Update(ctx context.Context, floor *models.Floor) error {
	return r.db.WithContext(ctx).Save(floor).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Floor{}).
		Where("id = ? AND NOT is_deleted", id).
		Update("is_deleted", true)
	return result.RowsAffected, result.Error
}

func (r *repository) ListByBuilding(ctx context.Context, buildingID uuid.UUID) ([]models.Floor, error) {
	var floors []models.Floor
	err := r.db.WithContext(ctx).
		Where("building_id = ? AND NOT is_deleted", buildingID).
		Order("floor_number").
		Find(&floors).Error
	if err != nil {
		return nil, err
	}
	return floors, nil
}

func (r *repository) FloorNumberExists(ctx context.Context, buildingID uuid.UUID, floorNumber int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Floor{}).
		Where("building_id = ? AND floor_number = ? AND NOT is_deleted", buildingID, floorNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CountNonDeletedApartments(ctx context.Context, floorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("floor_id = ? AND NOT is_deleted", floorID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountActiveContracts(ctx context.Context, floorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Joins("JOIN apartments ON apartments.id = contracts.apartment_id").
		Where("apartments.floor_id = ?", floorID).
		Where("contracts.status = ? AND NOT contracts.is_deleted", enums.ContractStatusActive).
		Count(&count).Error
	return count, err
}
