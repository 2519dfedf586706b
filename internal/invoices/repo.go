package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

// BillingLine is one priced component of a monthly invoice.
type BillingLine struct {
	Description string          `gorm:"column:description"`
	Amount      decimal.Decimal `gorm:"column:amount"`
}

// Repository manages persistence for invoices and their detail lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	CreateDetails(ctx context.Context, details []models.InvoiceDetail) error
	FindByID(ctx context.Context, s scope.Scope, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, s scope.Scope, status *enums.InvoiceStatus) ([]models.Invoice, error)
	ListDetails(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceDetail, error)
	ExistsForPeriod(ctx context.Context, contractID uuid.UUID, year, month int) (bool, error)
	ListBillableContracts(ctx context.Context) ([]models.Contract, error)
	SubscriptionLines(ctx context.Context, contractID uuid.UUID) ([]BillingLine, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (int64, error)
	Cancel(ctx context.Context, id uuid.UUID) (int64, error)
	MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error)
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
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

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) CreateDetails(ctx context.Context, details []models.InvoiceDetail) error {
	if len(details) == 0 {
		return nil
	}
	for i := range details {
		if details[i].ID == uuid.Nil {
			details[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

func (r *repository) FindByID(ctx context.Context, s scope.Scope, id uuid.UUID) (*models.Invoice, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("invoices.id = ?", id)

	var invoice models.Invoice
	if err := s.FilterInvoices(query).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) List(ctx context.Context, s scope.Scope, status *enums.InvoiceStatus) ([]models.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if status != nil {
		query = query.Where("invoices.status = ?", *status)
	}
	query = s.FilterInvoices(query).Order("invoices.issued_at DESC")

	var invoices []models.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) ListDetails(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceDetail, error) {
	var details []models.InvoiceDetail
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at").
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repository) ExistsForPeriod(ctx context.Context, contractID uuid.UUID, year, month int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("contract_id = ? AND period_year = ? AND period_month = ?", contractID, year, month).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListBillableContracts(ctx context.Context) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.WithContext(ctx).
		Where("status = ? AND NOT is_deleted", enums.ContractStatusActive).
		Order("contract_number").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repository) SubscriptionLines(ctx context.Context, contractID uuid.UUID) ([]BillingLine, error) {
	var lines []BillingLine
	err := r.db.WithContext(ctx).
		Model(&models.ContractService{}).
		Select("services.name AS description, contract_services.price AS amount").
		Joins("JOIN services ON services.id = contract_services.service_id").
		Where("contract_services.contract_id = ?", contractID).
		Order("services.name").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status IN ?", id, []enums.InvoiceStatus{enums.InvoiceStatusPending, enums.InvoiceStatusOverdue}).
		Updates(map[string]any{
			"status":  enums.InvoiceStatusPaid,
			"paid_at": paidAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Cancel(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, enums.InvoiceStatusPending).
		Update("status", enums.InvoiceStatusCanceled)
	return result.RowsAffected, result.Error
}

func (r *repository) MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", enums.InvoiceStatusPending, cutoff).
		Update("status", enums.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}

func (r *repository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}
