package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Contract binds a resident to an apartment. Start/end dates apply to RENTAL
// contracts only; OWNERSHIP contracts must carry neither. At most one row per
// apartment may hold status ACTIVE, enforced by a partial unique index.
type Contract struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractNumber string               `gorm:"column:contract_number;not null;uniqueIndex"`
	ApartmentID    uuid.UUID            `gorm:"column:apartment_id;type:uuid;not null;index"`
	ResidentID     uuid.UUID            `gorm:"column:resident_id;type:uuid;not null;index"`
	Type           enums.ContractType   `gorm:"column:type;not null"`
	Status         enums.ContractStatus `gorm:"column:status;not null"`
	SignedDate     time.Time            `gorm:"column:signed_date;not null"`
	StartDate      *time.Time           `gorm:"column:start_date"`
	EndDate        *time.Time           `gorm:"column:end_date"`
	MonthlyRent    decimal.Decimal      `gorm:"column:monthly_rent;type:numeric(12,2);not null"`
	Deposit        decimal.Decimal      `gorm:"column:deposit;type:numeric(12,2);not null"`
	IsDeleted      bool                 `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether a rental contract's end date has passed. Expiry
// is derived for display; it is never a stored state.
func (c Contract) IsExpired(now time.Time) bool {
	return c.EndDate != nil && c.EndDate.Before(now)
}
