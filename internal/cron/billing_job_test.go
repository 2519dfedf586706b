package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/estatedesk/estatedesk-backend/internal/invoices"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type fakeGenerator struct {
	year  int
	month int
	actor scope.Principal
	err   error
}

func (f *fakeGenerator) GenerateForPeriod(ctx context.Context, actor scope.Principal, year, month int) (*invoices.GenerationResult, error) {
	f.actor = actor
	f.year = year
	f.month = month
	if f.err != nil {
		return nil, f.err
	}
	return &invoices.GenerationResult{Created: 1}, nil
}

func TestBillingJobBillsCurrentMonth(t *testing.T) {
	generator := &fakeGenerator{}
	job, err := NewBillingJob(generator)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if generator.year != 2026 || generator.month != 8 {
		t.Fatalf("expected period 2026-08, got %04d-%02d", generator.year, generator.month)
	}
	if !generator.actor.IsAdmin() {
		t.Fatal("expected the worker to run with admin scope")
	}
}

func TestBillingJobPropagatesError(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("boom")}
	job, err := NewBillingJob(generator)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeMarker struct {
	calls int
}

func (f *fakeMarker) MarkOverdueInvoices(ctx context.Context) (int64, error) {
	f.calls++
	return 2, nil
}

func TestOverdueInvoicesJob(t *testing.T) {
	marker := &fakeMarker{}
	job, err := NewOverdueInvoicesJob(marker)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if marker.calls != 1 {
		t.Fatalf("expected 1 call, got %d", marker.calls)
	}
}

type fakeExpirer struct {
	calls int
}

func (f *fakeExpirer) ExpireContracts(ctx context.Context) (int, error) {
	f.calls++
	return 1, nil
}

func TestContractExpiryJob(t *testing.T) {
	expirer := &fakeExpirer{}
	job, err := NewContractExpiryJob(expirer)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 1 {
		t.Fatalf("expected 1 call, got %d", expirer.calls)
	}
}
