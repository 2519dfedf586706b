package cascade

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Repository issues the bulk status updates the cascade engine composes
// inside a single transaction. Every update skips soft-deleted rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBuilding(ctx context.Context, id uuid.UUID) (*models.Building, error)
	FindFloor(ctx context.Context, id uuid.UUID) (*models.Floor, error)
	UpdateBuildingStatus(ctx context.Context, buildingID uuid.UUID, status enums.BuildingStatus) (int64, error)
	UpdateFloorStatus(ctx context.Context, floorID uuid.UUID, status enums.FloorStatus) (int64, error)
	UpdateFloorStatusesForBuilding(ctx context.Context, buildingID uuid.UUID, status enums.FloorStatus) error
	ForceApartmentsMaintenanceForBuilding(ctx context.Context, buildingID uuid.UUID) error
	ReleaseMaintenanceApartmentsForBuilding(ctx context.Context, buildingID uuid.UUID) error
	ForceApartmentsMaintenanceForFloor(ctx context.Context, floorID uuid.UUID) error
	ReleaseMaintenanceApartmentsForFloor(ctx context.Context, floorID uuid.UUID) error
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

func (r *repository) FindBuilding(ctx context.Context, id uuid.UUID) (*models.Building, error) {
	var building models.Building
	err := r.db.WithContext(ctx).
		Where("id = ? AND NOT is_deleted", id).
		First(&building).Error
	if err != nil {
		return nil, err
	}
	return &building, nil
}

func (r *repository) FindFloor(ctx context.Context, id uuid.UUID) (*models.Floor, error) {
	var floor models.Floor
	err := r.db.WithContext(ctx).
		Where("id = ? AND NOT is_deleted", id).
		First(&floor).Error
	if err != nil {
		return nil, err
	}
	return &floor, nil
}

func (r *repository) UpdateBuildingStatus(ctx context.Context, buildingID uuid.UUID, status enums.BuildingStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Building{}).
		Where("id = ? AND NOT is_deleted", buildingID).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repository) UpdateFloorStatus(ctx context.Context, floorID uuid.UUID, status enums.FloorStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Floor{}).
		Where("id = ? AND NOT is_deleted", floorID).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repository) UpdateFloorStatusesForBuilding(ctx context.Context, buildingID uuid.UUID, status enums.FloorStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Floor{}).
		Where("building_id = ? AND NOT is_deleted", buildingID).
		Update("status", status).Error
}

func (r *repository) floorIDsForBuilding(ctx context.Context, buildingID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Floor{}).
		Select("id").
		Where("building_id = ? AND NOT is_deleted", buildingID)
}

// ForceApartmentsMaintenanceForBuilding overwrites every non-deleted
// apartment under the building with MAINTENANCE, including RENTED/OWNED ones.
func (r *repository) ForceApartmentsMaintenanceForBuilding(ctx context.Context, buildingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("floor_id IN (?) AND NOT is_deleted", r.floorIDsForBuilding(ctx, buildingID)).
		Update("status", enums.ApartmentStatusMaintenance).Error
}

// ReleaseMaintenanceApartmentsForBuilding reverts only apartments currently
// MAINTENANCE to AVAILABLE; occupied apartments are untouched.
func (r *repository) ReleaseMaintenanceApartmentsForBuilding(ctx context.Context, buildingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("floor_id IN (?) AND NOT is_deleted", r.floorIDsForBuilding(ctx, buildingID)).
		Where("status = ?", enums.ApartmentStatusMaintenance).
		Update("status", enums.ApartmentStatusAvailable).Error
}

func (r *repository) ForceApartmentsMaintenanceForFloor(ctx context.Context, floorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("floor_id = ? AND NOT is_deleted", floorID).
		Update("status", enums.ApartmentStatusMaintenance).Error
}

func (r *repository) ReleaseMaintenanceApartmentsForFloor(ctx context.Context, floorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Apartment{}).
		Where("floor_id = ? AND NOT is_deleted", floorID).
		Where("status = ?", enums.ApartmentStatusMaintenance).
		Update("status", enums.ApartmentStatusAvailable).Error
}
