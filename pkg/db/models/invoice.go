package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Invoice is generated per contract per month and lives its own billing
// lifecycle, independent of the contract's.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	ContractID    uuid.UUID           `gorm:"column:contract_id;type:uuid;not null;uniqueIndex:idx_invoices_contract_period"`
	PeriodYear    int                 `gorm:"column:period_year;not null;uniqueIndex:idx_invoices_contract_period"`
	PeriodMonth   int                 `gorm:"column:period_month;not null;uniqueIndex:idx_invoices_contract_period"`
	Status        enums.InvoiceStatus `gorm:"column:status;not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	IssuedAt      time.Time           `gorm:"column:issued_at;not null"`
	DueDate       time.Time           `gorm:"column:due_date;not null"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// InvoiceDetail is one line of an invoice (base rent or a subscribed
// service).
type InvoiceDetail struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index"`
	Description string          `gorm:"column:description;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
