package buildings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

// Repository manages persistence for buildings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, building *models.Building) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Building, error)
	Update(ctx context.Context, building *models.Building) error
	SoftDelete(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, s scope.Scope) ([]models.Building, error)
	CountActiveContracts(ctx context.Context, buildingID uuid.UUID) (int64, error)
	CountNonDeletedFloors(ctx context.Context, buildingID uuid.UUID) (int64, error)
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

func (r *repository) Create(ctx context.Context, building *models.Building) error {
	if building.ID == uuid.Nil {
		building.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(building).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Building, error) {
	var building models.Building
	err := r.db.WithContext(ctx).
		Where("id = ? AND NOT is_deleted", id).
		First(&building).Error
	if err != nil {
		return nil, err
	}
	return &building, nil
}

func (r *repository) Update(ctx context.Context, building *models.Building) error {
	return r.db.WithContext(ctx).Save(building).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Building{}).
		Where("id = ? AND NOT is_deleted", id).
		Update("is_deleted", true)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, s scope.Scope) ([]models.Building, error) {
	var buildings []models.Building
	query := r.db.WithContext(ctx).
		Model(&models.Building{}).
		Where("NOT buildings.is_deleted").
		Order("buildings.name")
	if err := s.FilterBuildings(query).Find(&buildings).Error; err != nil {
		return nil, err
	}
	return buildings, nil
}

func (r *repository) CountActiveContracts(ctx context.Context, buildingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Joins("JOIN apartments ON apartments.id = contracts.apartment_id").
		Joins("JOIN floors ON floors.id = apartments.floor_id").
		Where("floors.building_id = ?", buildingID).
		Where("contracts.status = ? AND NOT contracts.is_deleted", enums.ContractStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) CountNonDeletedFloors(ctx context.Context, buildingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Floor{}).
		Where("building_id = ? AND NOT is_deleted", buildingID).
		Count(&count).Error
	return count, err
}
