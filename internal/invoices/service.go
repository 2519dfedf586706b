package invoices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/config"
	"github.com/estatedesk/estatedesk-backend/pkg/db"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/logger"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service issues and settles monthly invoices. Generation is idempotent per
// (contract, period): rerunning a month skips contracts already billed.
type Service interface {
	GenerateForPeriod(ctx context.Context, actor scope.Principal, year, month int) (*GenerationResult, error)
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, actor scope.Principal, status *enums.InvoiceStatus) ([]models.Invoice, error)
	ListDetails(ctx context.Context, actor scope.Principal, invoiceID uuid.UUID) ([]models.InvoiceDetail, error)
	MarkPaid(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Invoice, error)
	Cancel(ctx context.Context, actor scope.Principal, id uuid.UUID) error
	MarkOverdueInvoices(ctx context.Context) (int64, error)
}

// GenerationResult summarizes one billing run.
type GenerationResult struct {
	Created int
	Skipped int
	Failed  int
}

type service struct {
	repo Repository
	tx   txRunner
	cfg  config.InvoicesConfig
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds an invoice service with the provided collaborators.
func NewService(repo Repository, tx txRunner, cfg config.InvoicesConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.DueDays <= 0 {
		return nil, fmt.Errorf("invoice due days must be positive")
	}
	return &service{repo: repo, tx: tx, cfg: cfg, logg: logg, now: time.Now}, nil
}

// GenerateForPeriod bills every active contract for the given month. Each
// contract gets its own transaction so one failure does not roll back the
// whole run.
func (s *service) GenerateForPeriod(ctx context.Context, actor scope.Principal, year, month int) (*GenerationResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins run billing")
	}
	if month < 1 || month > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
	}
	if year < 2000 || year > 2200 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year out of range")
	}

	contracts, err := s.repo.ListBillableContracts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list billable contracts")
	}

	result := &GenerationResult{}
	var errs []error
	for _, contract := range contracts {
		created, err := s.billContract(ctx, &contract, year, month)
		if err != nil {
			result.Failed++
			errs = append(errs, err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"period":  fmt.Sprintf("%04d-%02d", year, month),
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	})
	s.logg.Info(ctx, "billing run finished")
	return result, multierr.Combine(errs...)
}

func (s *service) billContract(ctx context.Context, contract *models.Contract, year, month int) (bool, error) {
	created := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.ExistsForPeriod(ctx, contract.ID, year, month)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		lines, err := s.billingLines(ctx, repo, contract)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}

		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.Amount)
		}

		number, err := s.nextNumber(ctx, repo, year, month)
		if err != nil {
			return err
		}

		now := s.now()
		invoice := &models.Invoice{
			InvoiceNumber: number,
			ContractID:    contract.ID,
			PeriodYear:    year,
			PeriodMonth:   month,
			Status:        enums.InvoiceStatusPending,
			TotalAmount:   total,
			IssuedAt:      now,
			DueDate:       now.AddDate(0, 0, s.cfg.DueDays),
		}
		if err := repo.Create(ctx, invoice); err != nil {
			return err
		}

		details := make([]models.InvoiceDetail, 0, len(lines))
		for _, line := range lines {
			details = append(details, models.InvoiceDetail{
				InvoiceID:   invoice.ID,
				Description: line.Description,
				Amount:      line.Amount,
			})
		}
		if err := repo.CreateDetails(ctx, details); err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		// a concurrent run billed the same period first; treat as skipped
		if db.IsUniqueViolation(err, "") {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bill contract "+contract.ContractNumber)
	}
	return created, nil
}

// billingLines assembles the priced components for one contract: base rent
// for rentals, then every subscribed service at its snapshotted price.
// Ownership contracts with no subscriptions produce nothing and are skipped.
func (s *service) billingLines(ctx context.Context, repo Repository, contract *models.Contract) ([]BillingLine, error) {
	var lines []BillingLine
	if contract.Type == enums.ContractTypeRental && contract.MonthlyRent.IsPositive() {
		lines = append(lines, BillingLine{Description: "Base rent", Amount: contract.MonthlyRent})
	}

	subs, err := repo.SubscriptionLines(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	return append(lines, subs...), nil
}

func (s *service) GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (s *service) List(ctx context.Context, actor scope.Principal, status *enums.InvoiceStatus) ([]models.Invoice, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid invoice status")
	}
	invoices, err := s.repo.List(ctx, actor.Scope(), status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	return invoices, nil
}

func (s *service) ListDetails(ctx context.Context, actor scope.Principal, invoiceID uuid.UUID) ([]models.InvoiceDetail, error) {
	if _, err := s.GetByID(ctx, actor, invoiceID); err != nil {
		return nil, err
	}
	details, err := s.repo.ListDetails(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoice details")
	}
	return details, nil
}

func (s *service) MarkPaid(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Invoice, error) {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}

	affected, err := s.repo.MarkPaid(ctx, id, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark invoice paid")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invoice is not payable")
	}
	return s.GetByID(ctx, actor, id)
}

func (s *service) Cancel(ctx context.Context, actor scope.Principal, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins cancel invoices")
	}
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return err
	}

	affected, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel invoice")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending invoices can be canceled")
	}
	return nil
}

// MarkOverdueInvoices flips pending invoices past their due date to OVERDUE.
// Called by the billing worker; no principal because it covers all buildings.
func (s *service) MarkOverdueInvoices(ctx context.Context) (int64, error) {
	affected, err := s.repo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark overdue invoices")
	}
	if affected > 0 {
		s.logg.Info(s.logg.WithField(ctx, "count", affected), "marked invoices overdue")
	}
	return affected, nil
}

func (s *service) nextNumber(ctx context.Context, repo Repository, year, month int) (string, error) {
	prefix := fmt.Sprintf("INV-%04d%02d-", year, month)
	last, err := repo.LastNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 0
	if last != "" {
		parsed, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed invoice number %q", last)
		}
		seq = parsed
	}
	return fmt.Sprintf("%s%03d", prefix, seq+1), nil
}
