package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type contractReader interface {
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Contract, error)
}

// Service manages the billable service catalog and contract subscriptions.
// Subscriptions snapshot the catalog price at subscribe time so later catalog
// edits do not reprice existing contracts.
type Service interface {
	Create(ctx context.Context, actor scope.Principal, input CreateServiceInput) (*models.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	List(ctx context.Context, activeOnly bool) ([]models.Service, error)
	Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateServiceInput) (*models.Service, error)
	Deactivate(ctx context.Context, actor scope.Principal, id uuid.UUID) error
	Subscribe(ctx context.Context, actor scope.Principal, contractID, serviceID uuid.UUID) (*models.ContractService, error)
	Unsubscribe(ctx context.Context, actor scope.Principal, contractID, serviceID uuid.UUID) error
	ListSubscriptions(ctx context.Context, actor scope.Principal, contractID uuid.UUID) ([]models.ContractService, error)
}

// CreateServiceInput captures the fields required to add a catalog entry.
type CreateServiceInput struct {
	Name         string
	Description  string
	MonthlyPrice decimal.Decimal
}

// UpdateServiceInput captures the mutable catalog fields.
type UpdateServiceInput struct {
	Name         *string
	Description  *string
	MonthlyPrice *decimal.Decimal
	IsActive     *bool
}

type service struct {
	repo      Repository
	contracts contractReader
}

// NewService builds a catalog service with the provided collaborators.
func NewService(repo Repository, contracts contractReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("service repository required")
	}
	if contracts == nil {
		return nil, fmt.Errorf("contract service required")
	}
	return &service{repo: repo, contracts: contracts}, nil
}

func (s *service) Create(ctx context.Context, actor scope.Principal, input CreateServiceInput) (*models.Service, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage the service catalog")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service name is required")
	}
	if input.MonthlyPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthly price must not be negative")
	}

	svc := &models.Service{
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		MonthlyPrice: input.MonthlyPrice,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "service name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create service")
	}
	return svc, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	return svc, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	out, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list services")
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateServiceInput) (*models.Service, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins manage the service catalog")
	}
	svc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "service name must not be empty")
		}
		svc.Name = name
	}
	if input.Description != nil {
		svc.Description = strings.TrimSpace(*input.Description)
	}
	if input.MonthlyPrice != nil {
		if input.MonthlyPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthly price must not be negative")
		}
		svc.MonthlyPrice = *input.MonthlyPrice
	}
	if input.IsActive != nil {
		svc.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, svc); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "service name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update service")
	}
	return svc, nil
}

// Deactivate removes a service from the catalog without touching existing
// subscriptions; those keep billing at their snapshotted price.
func (s *service) Deactivate(ctx context.Context, actor scope.Principal, id uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, actor, id, UpdateServiceInput{IsActive: &inactive})
	return err
}

func (s *service) Subscribe(ctx context.Context, actor scope.Principal, contractID, serviceID uuid.UUID) (*models.ContractService, error) {
	contract, err := s.contracts.GetByID(ctx, actor, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != enums.ContractStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contract is not active")
	}

	svc, err := s.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "service is not active")
	}

	sub := &models.ContractService{
		ContractID: contract.ID,
		ServiceID:  svc.ID,
		Price:      svc.MonthlyPrice,
	}
	if err := s.repo.Subscribe(ctx, sub); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "contract is already subscribed to the service")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe contract")
	}
	return sub, nil
}

func (s *service) Unsubscribe(ctx context.Context, actor scope.Principal, contractID, serviceID uuid.UUID) error {
	if _, err := s.contracts.GetByID(ctx, actor, contractID); err != nil {
		return err
	}

	affected, err := s.repo.Unsubscribe(ctx, contractID, serviceID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unsubscribe contract")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return nil
}

func (s *service) ListSubscriptions(ctx context.Context, actor scope.Principal, contractID uuid.UUID) ([]models.ContractService, error) {
	if _, err := s.contracts.GetByID(ctx, actor, contractID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubscriptions(ctx, contractID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}
