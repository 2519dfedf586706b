package floors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type buildingFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Building, error)
}

// Service exposes floor operations within a building.
type Service interface {
	Create(ctx context.Context, actor scope.Principal, input CreateFloorInput) (*models.Floor, error)
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Floor, error)
	ListByBuilding(ctx context.Context, actor scope.Principal, buildingID uuid.UUID) ([]models.Floor, error)
	Rename(ctx context.Context, actor scope.Principal, id uuid.UUID, name string) (*models.Floor, error)
	Delete(ctx context.Context, actor scope.Principal, id uuid.UUID) error
}

// CreateFloorInput captures the fields required to add a floor.
type CreateFloorInput struct {
	BuildingID  uuid.UUID
	FloorNumber int
	Name        string
}

type service struct {
	repo      Repository
	buildings buildingFinder
}

// NewService builds a floor service with the provided repositories.
func NewService(repo Repository, buildings buildingFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("floor repository required")
	}
	if buildings == nil {
		return nil, fmt.Errorf("building repository required")
	}
	return &service{repo: repo, buildings: buildings}, nil
}

func (s *service) Create(ctx context.Context, actor scope.Principal, input CreateFloorInput) (*models.Floor, error) {
	if input.BuildingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "building id is required")
	}
	if !actor.Scope().AllowsBuilding(input.BuildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "building outside caller scope")
	}

	if _, err := s.buildings.FindByID(ctx, input.BuildingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "building not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load building")
	}

	exists, err := s.repo.FloorNumberExists(ctx, input.BuildingID, input.FloorNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check floor number")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "floor number already exists in the building")
	}

	floor := &models.Floor{
		BuildingID:  input.BuildingID,
		FloorNumber: input.FloorNumber,
		Name:        strings.TrimSpace(input.Name),
		Status:      enums.FloorStatusActive,
	}
	if err := s.repo.Create(ctx, floor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create floor")
	}
	return floor, nil
}

func (s *service) GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Floor, error) {
	floor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "floor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load floor")
	}
	if !actor.Scope().AllowsBuilding(floor.BuildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "floor outside caller scope")
	}
	return floor, nil
}

func (s *service) ListByBuilding(ctx context.Context, actor scope.Principal, buildingID uuid.UUID) ([]models.Floor, error) {
	if !actor.Scope().AllowsBuilding(buildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "building outside caller scope")
	}
	floors, err := s.repo.ListByBuilding(ctx, buildingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list floors")
	}
	return floors, nil
}

func (s *service) Rename(ctx context.Context, actor scope.Principal, id uuid.UUID, name string) (*models.Floor, error) {
	floor, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	floor.Name = strings.TrimSpace(name)
	if err := s.repo.Update(ctx, floor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update floor")
	}
	return floor, nil
}

// Delete soft-deletes a floor. Blocked while the floor has non-deleted
// apartments or any apartment under it holds an ACTIVE contract.
func (s *service) Delete(ctx context.Context, actor scope.Principal, id uuid.UUID) error {
	floor, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return err
	}

	apartments, err := s.repo.CountNonDeletedApartments(ctx, floor.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count apartments")
	}
	if apartments > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "floor has apartments")
	}

	active, err := s.repo.CountActiveContracts(ctx, floor.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active contracts")
	}
	if active > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "floor has active contracts")
	}

	affected, err := s.repo.SoftDelete(ctx, floor.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete floor")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "floor not found")
	}
	return nil
}
