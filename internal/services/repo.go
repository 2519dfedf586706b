package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
)

// Repository manages the service catalog and per-contract subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, svc *models.Service) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	Update(ctx context.Context, svc *models.Service) error
	List(ctx context.Context, activeOnly bool) ([]models.Service, error)
	Subscribe(ctx context.Context, sub *models.ContractService) error
	Unsubscribe(ctx context.Context, contractID, serviceID uuid.UUID) (int64, error)
	ListSubscriptions(ctx context.Context, contractID uuid.UUID) ([]models.ContractService, error)
	SubscriptionCount(ctx context.Context, serviceID uuid.UUID) (int64, error)
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

func (r *repository) Create(ctx context.Context, svc *models.Service) error {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(svc).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *repository) Update(ctx context.Context, svc *models.Service) error {
	return r.db.WithContext(ctx).Save(svc).Error
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	query := r.db.WithContext(ctx).Model(&models.Service{}).Order("name")
	if activeOnly {
		query = query.Where("is_active")
	}

	var out []models.Service
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Subscribe(ctx context.Context, sub *models.ContractService) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Unsubscribe(ctx context.Context, contractID, serviceID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("contract_id = ? AND service_id = ?", contractID, serviceID).
		Delete(&models.ContractService{})
	return result.RowsAffected, result.Error
}

func (r *repository) ListSubscriptions(ctx context.Context, contractID uuid.UUID) ([]models.ContractService, error) {
	var subs []models.ContractService
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) SubscriptionCount(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContractService{}).
		Where("service_id = ?", serviceID).
		Count(&count).Error
	return count, err
}
