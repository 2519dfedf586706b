package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Repository manages persistence for contract history entries. The table is
// append-only; no update or delete operation exists.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.ContractHistory) error
	ListByContractID(ctx context.Context, contractID uuid.UUID) ([]models.ContractHistory, error)
	Recent(ctx context.Context, limit int) ([]models.ContractHistory, error)
	CountByAction(ctx context.Context, action enums.HistoryAction) (int64, error)
	CountSince(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.ContractHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByContractID(ctx context.Context, contractID uuid.UUID) ([]models.ContractHistory, error) {
	var entries []models.ContractHistory
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]models.ContractHistory, error) {
	var entries []models.ContractHistory
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountByAction(ctx context.Context, action enums.HistoryAction) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContractHistory{}).
		Where("action = ?", action).
		Count(&count).Error
	return count, err
}

func (r *repository) CountSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContractHistory{}).
		Where("created_at >= ?", cutoff).
		Count(&count).Error
	return count, err
}
