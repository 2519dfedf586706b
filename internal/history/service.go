package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// Service records and reads contract history entries. Every lifecycle
// mutation appends inside the same transaction as the primary write, so a
// failed append rolls back the mutation it describes.
type Service interface {
	Record(ctx context.Context, input RecordEntryInput) (*models.ContractHistory, error)
	ListForContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractHistory, error)
	RecentFeed(ctx context.Context, limit int) ([]models.ContractHistory, error)
	CountByAction(ctx context.Context, action enums.HistoryAction) (int64, error)
	CountWithin(ctx context.Context, window time.Duration) (int64, error)
}

type service struct {
	repo Repository
}

// RecordEntryInput captures the immutable data a history entry requires.
type RecordEntryInput struct {
	ContractID  uuid.UUID
	Action      enums.HistoryAction
	OldValue    *string
	NewValue    *string
	OldEndDate  *time.Time
	NewEndDate  *time.Time
	Reason      string
	ActorUserID *uuid.UUID
}

// NewService wires a history service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo}, nil
}

// WithRepository returns a service bound to a different repository, used to
// record inside an open transaction.
func WithRepository(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) (*models.ContractHistory, error) {
	if input.ContractID == uuid.Nil {
		return nil, fmt.Errorf("contract id is required")
	}
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid history action %q", input.Action)
	}

	entry := &models.ContractHistory{
		ContractID:  input.ContractID,
		Action:      input.Action,
		OldValue:    input.OldValue,
		NewValue:    input.NewValue,
		OldEndDate:  input.OldEndDate,
		NewEndDate:  input.NewEndDate,
		Reason:      input.Reason,
		ActorUserID: input.ActorUserID,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListForContract(ctx context.Context, contractID uuid.UUID) ([]models.ContractHistory, error) {
	if contractID == uuid.Nil {
		return nil, fmt.Errorf("contract id is required")
	}
	return s.repo.ListByContractID(ctx, contractID)
}

func (s *service) RecentFeed(ctx context.Context, limit int) ([]models.ContractHistory, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	return s.repo.Recent(ctx, limit)
}

func (s *service) CountByAction(ctx context.Context, action enums.HistoryAction) (int64, error) {
	if !action.IsValid() {
		return 0, fmt.Errorf("invalid history action %q", action)
	}
	return s.repo.CountByAction(ctx, action)
}

func (s *service) CountWithin(ctx context.Context, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("window must be positive")
	}
	return s.repo.CountSince(ctx, time.Now().Add(-window))
}
