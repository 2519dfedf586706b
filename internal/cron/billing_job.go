package cron

import (
	"context"
	"errors"
	"time"

	"github.com/estatedesk/estatedesk-backend/internal/invoices"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type invoiceGenerator interface {
	GenerateForPeriod(ctx context.Context, actor scope.Principal, year, month int) (*invoices.GenerationResult, error)
}

// BillingJob issues the current month's invoices for every active contract.
// Generation is idempotent per (contract, period), so reruns are safe.
type BillingJob struct {
	invoices invoiceGenerator
	now      func() time.Time
}

// NewBillingJob builds the monthly invoice generation job.
func NewBillingJob(generator invoiceGenerator) (*BillingJob, error) {
	if generator == nil {
		return nil, errors.New("invoice service required")
	}
	return &BillingJob{invoices: generator, now: time.Now}, nil
}

// Name identifies the job in logs and metrics.
func (j *BillingJob) Name() string { return "invoice_generation" }

// Run bills the month the worker is running in. The worker itself is the
// actor, so the run carries admin scope.
func (j *BillingJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	_, err := j.invoices.GenerateForPeriod(ctx, systemPrincipal(), now.Year(), int(now.Month()))
	return err
}

type overdueMarker interface {
	MarkOverdueInvoices(ctx context.Context) (int64, error)
}

// OverdueInvoicesJob flips pending invoices past their due date to OVERDUE.
type OverdueInvoicesJob struct {
	invoices overdueMarker
}

// NewOverdueInvoicesJob builds the overdue marking job.
func NewOverdueInvoicesJob(marker overdueMarker) (*OverdueInvoicesJob, error) {
	if marker == nil {
		return nil, errors.New("invoice service required")
	}
	return &OverdueInvoicesJob{invoices: marker}, nil
}

// Name identifies the job in logs and metrics.
func (j *OverdueInvoicesJob) Name() string { return "invoice_overdue" }

// Run marks overdue invoices.
func (j *OverdueInvoicesJob) Run(ctx context.Context) error {
	_, err := j.invoices.MarkOverdueInvoices(ctx)
	return err
}

type contractExpirer interface {
	ExpireContracts(ctx context.Context) (int, error)
}

// ContractExpiryJob terminates rental contracts whose term has ended.
type ContractExpiryJob struct {
	contracts contractExpirer
}

// NewContractExpiryJob builds the contract expiry job.
func NewContractExpiryJob(expirer contractExpirer) (*ContractExpiryJob, error) {
	if expirer == nil {
		return nil, errors.New("contract service required")
	}
	return &ContractExpiryJob{contracts: expirer}, nil
}

// Name identifies the job in logs and metrics.
func (j *ContractExpiryJob) Name() string { return "contract_expiry" }

// Run terminates expired rental contracts.
func (j *ContractExpiryJob) Run(ctx context.Context) error {
	_, err := j.contracts.ExpireContracts(ctx)
	return err
}

func systemPrincipal() scope.Principal {
	return scope.Principal{Role: enums.UserRoleAdmin}
}
