package assignments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
)

// Repository manages persistence for user-building assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.UserBuilding) error
	Delete(ctx context.Context, userID, buildingID uuid.UUID) (int64, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	Get(ctx context.Context, userID, buildingID uuid.UUID) (*models.UserBuilding, error)
	ListBuildingIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListForBuilding(ctx context.Context, buildingID uuid.UUID) ([]models.UserBuilding, error)
	ClearPrimary(ctx context.Context, buildingID uuid.UUID) error
	SetPrimary(ctx context.Context, userID, buildingID uuid.UUID) (int64, error)
	PrimaryForBuilding(ctx context.Context, buildingID uuid.UUID) (*models.UserBuilding, error)
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

func (r *repository) Create(ctx context.Context, assignment *models.UserBuilding) error {
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) Delete(ctx context.Context, userID, buildingID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND building_id = ?", userID, buildingID).
		Delete(&models.UserBuilding{})
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.UserBuilding{}).Error
}

func (r *repository) Get(ctx context.Context, userID, buildingID uuid.UUID) (*models.UserBuilding, error) {
	var assignment models.UserBuilding
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND building_id = ?", userID, buildingID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ListBuildingIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.UserBuilding{}).
		Where("user_id = ?", userID).
		Order("assigned_at").
		Pluck("building_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) ListForBuilding(ctx context.Context, buildingID uuid.UUID) ([]models.UserBuilding, error) {
	var rows []models.UserBuilding
	err := r.db.WithContext(ctx).
		Where("building_id = ?", buildingID).
		Order("assigned_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ClearPrimary(ctx context.Context, buildingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.UserBuilding{}).
		Where("building_id = ? AND is_primary", buildingID).
		Update("is_primary", false).Error
}

func (r *repository) SetPrimary(ctx context.Context, userID, buildingID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserBuilding{}).
		Where("user_id = ? AND building_id = ?", userID, buildingID).
		Update("is_primary", true)
	return result.RowsAffected, result.Error
}

func (r *repository) PrimaryForBuilding(ctx context.Context, buildingID uuid.UUID) (*models.UserBuilding, error) {
	var assignment models.UserBuilding
	err := r.db.WithContext(ctx).
		Where("building_id = ? AND is_primary", buildingID).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}
