package assignments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the building-user assignment registry.
type Service interface {
	Assign(ctx context.Context, actor scope.Principal, userID, buildingID uuid.UUID) (*models.UserBuilding, error)
	Unassign(ctx context.Context, actor scope.Principal, userID, buildingID uuid.UUID) error
	ReplaceAssignments(ctx context.Context, actor scope.Principal, userID uuid.UUID, buildingIDs []uuid.UUID) ([]models.UserBuilding, error)
	SetPrimaryManager(ctx context.Context, actor scope.Principal, buildingID uuid.UUID, userID *uuid.UUID) error
	ListUserBuildingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListForBuilding(ctx context.Context, actor scope.Principal, buildingID uuid.UUID) ([]models.UserBuilding, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an assignment service with the provided repository.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Assign(ctx context.Context, actor scope.Principal, userID, buildingID uuid.UUID) (*models.UserBuilding, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators manage assignments")
	}
	if userID == uuid.Nil || buildingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and building id are required")
	}

	existing, err := s.repo.Get(ctx, userID, buildingID)
	if err == nil && existing != nil {
		return existing, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup assignment")
	}

	assignment := &models.UserBuilding{
		UserID:     userID,
		BuildingID: buildingID,
		AssignedBy: &actor.UserID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
	}
	return assignment, nil
}

func (s *service) Unassign(ctx context.Context, actor scope.Principal, userID, buildingID uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators manage assignments")
	}

	affected, err := s.repo.Delete(ctx, userID, buildingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete assignment")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	return nil
}

// ReplaceAssignments swaps the user's assignment set atomically. The delete
// and re-insert happen in one transaction so a concurrent reader never sees
// the user with zero rows mid-swap.
func (s *service) ReplaceAssignments(ctx context.Context, actor scope.Principal, userID uuid.UUID, buildingIDs []uuid.UUID) ([]models.UserBuilding, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators manage assignments")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	deduped := make([]uuid.UUID, 0, len(buildingIDs))
	seen := make(map[uuid.UUID]struct{}, len(buildingIDs))
	for _, id := range buildingIDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "building id must not be empty")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	var created []models.UserBuilding
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteAllForUser(ctx, userID); err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		for _, buildingID := range deduped {
			assignment := &models.UserBuilding{
				UserID:     userID,
				BuildingID: buildingID,
				AssignedBy: &actor.UserID,
			}
			if err := repo.Create(ctx, assignment); err != nil {
				return fmt.Errorf("create assignment: %w", err)
			}
			created = append(created, *assignment)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace assignments")
	}
	return created, nil
}

// SetPrimaryManager marks one assignment row as the building's primary
// manager. Passing a nil user clears the flag. The target user must already
// hold an assignment for the building; the flag never creates one.
func (s *service) SetPrimaryManager(ctx context.Context, actor scope.Principal, buildingID uuid.UUID, userID *uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators manage assignments")
	}
	if buildingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "building id is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearPrimary(ctx, buildingID); err != nil {
			return fmt.Errorf("clear primary flag: %w", err)
		}
		if userID == nil {
			return nil
		}
		affected, err := repo.SetPrimary(ctx, *userID, buildingID)
		if err != nil {
			return fmt.Errorf("set primary flag: %w", err)
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user is not assigned to the building")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set primary manager")
	}
	return nil
}

func (s *service) ListUserBuildingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	ids, err := s.repo.ListBuildingIDsForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user buildings")
	}
	return ids, nil
}

func (s *service) ListForBuilding(ctx context.Context, actor scope.Principal, buildingID uuid.UUID) ([]models.UserBuilding, error) {
	if buildingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "building id is required")
	}
	if !actor.Scope().AllowsBuilding(buildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "building outside caller scope")
	}
	rows, err := s.repo.ListForBuilding(ctx, buildingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list building assignments")
	}
	return rows, nil
}
