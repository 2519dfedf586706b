package buildings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

// Service exposes building operations. Status transitions are owned by the
// cascade engine; Update deliberately has no status field.
type Service interface {
	Create(ctx context.Context, actor scope.Principal, input CreateBuildingInput) (*models.Building, error)
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Building, error)
	List(ctx context.Context, actor scope.Principal) ([]models.Building, error)
	Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateBuildingInput) (*models.Building, error)
	Delete(ctx context.Context, actor scope.Principal, id uuid.UUID) error
}

// CreateBuildingInput captures the fields required to register a building.
type CreateBuildingInput struct {
	Name      string
	Address   string
	Amenities []string
}

// UpdateBuildingInput captures the mutable building fields.
type UpdateBuildingInput struct {
	Name      *string
	Address   *string
	Amenities *[]string
}

type service struct {
	repo Repository
}

// NewService builds a building service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("building repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actor scope.Principal, input CreateBuildingInput) (*models.Building, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators create buildings")
	}
	name := strings.TrimSpace(input.Name)
	address := strings.TrimSpace(input.Address)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "building name is required")
	}
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "building address is required")
	}

	building := &models.Building{
		Name:      name,
		Address:   address,
		Status:    enums.BuildingStatusActive,
		Amenities: pq.StringArray(input.Amenities),
	}
	if err := s.repo.Create(ctx, building); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create building")
	}
	return building, nil
}

func (s *service) GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*models.Building, error) {
	if !actor.Scope().AllowsBuilding(id) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "building outside caller scope")
	}
	building, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "building not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load building")
	}
	return building, nil
}

func (s *service) List(ctx context.Context, actor scope.Principal) ([]models.Building, error) {
	buildings, err := s.repo.List(ctx, actor.Scope())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buildings")
	}
	return buildings, nil
}

func (s *service) Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateBuildingInput) (*models.Building, error) {
	building, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "building name must not be empty")
		}
		building.Name = name
	}
	if input.Address != nil {
		address := strings.TrimSpace(*input.Address)
		if address == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "building address must not be empty")
		}
		building.Address = address
	}
	if input.Amenities != nil {
		building.Amenities = pq.StringArray(*input.Amenities)
	}

	if err := s.repo.Update(ctx, building); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update building")
	}
	return building, nil
}

// Delete soft-deletes a building. Blocked while any apartment under the
// building still holds an ACTIVE contract.
func (s *service) Delete(ctx context.Context, actor scope.Principal, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators delete buildings")
	}
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return err
	}

	active, err := s.repo.CountActiveContracts(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active contracts")
	}
	if active > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "building has active contracts")
	}

	affected, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete building")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "building not found")
	}
	return nil
}
