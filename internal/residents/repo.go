package residents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

// Repository manages persistence for residents and household members.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, resident *models.Resident) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error)
	Update(ctx context.Context, resident *models.Resident) error
	SoftDelete(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context, s scope.Scope) ([]models.Resident, error)
	HasContracts(ctx context.Context, residentID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, member *models.HouseholdMember) error
	FindMember(ctx context.Context, id uuid.UUID) (*models.HouseholdMember, error)
	ListMembers(ctx context.Context, contractID uuid.UUID, activeOnly bool) ([]models.HouseholdMember, error)
	MarkMemberMovedOut(ctx context.Context, id uuid.UUID, movedOutAt time.Time) (int64, error)
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

func (r *repository) Create(ctx context.Context, resident *models.Resident) error {
	if resident.ID == uuid.Nil {
		resident.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(resident).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	var resident models.Resident
	err := r.db.WithContext(ctx).
		Where("id = ? AND NOT is_deleted", id).
		First(&resident).Error
	if err != nil {
		return nil, err
	}
	return &resident, nil
}

func (r *repository) Update(ctx context.Context, resident *models.Resident) error {
	return r.db.WithContext(ctx).Save(resident).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Resident{}).
		Where("id = ? AND NOT is_deleted", id).
		Update("is_deleted", true)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, s scope.Scope) ([]models.Resident, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Resident{}).
		Where("NOT residents.is_deleted").
		Order("residents.full_name")

	var residents []models.Resident
	if err := s.FilterResidents(query).Find(&residents).Error; err != nil {
		return nil, err
	}
	return residents, nil
}

func (r *repository) HasContracts(ctx context.Context, residentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contract{}).
		Where("resident_id = ?", residentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) AddMember(ctx context.Context, member *models.HouseholdMember) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) FindMember(ctx context.Context, id uuid.UUID) (*models.HouseholdMember, error) {
	var member models.HouseholdMember
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) ListMembers(ctx context.Context, contractID uuid.UUID, activeOnly bool) ([]models.HouseholdMember, error) {
	query := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID)
	if activeOnly {
		query = query.Where("is_active")
	}

	var members []models.HouseholdMember
	if err := query.Order("moved_in_at").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) MarkMemberMovedOut(ctx context.Context, id uuid.UUID, movedOutAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.HouseholdMember{}).
		Where("id = ? AND is_active", id).
		Updates(map[string]any{
			"is_active":    false,
			"moved_out_at": movedOutAt,
		})
	return result.RowsAffected, result.Error
}
