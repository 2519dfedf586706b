package apartments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/pagination"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type floorFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Floor, error)
}

// ListPage is one page of scoped apartments.
type ListPage struct {
	Apartments []ApartmentWithBuilding
	NextCursor string
}

// Service exposes apartment operations. Occupancy status is owned by the
// contract lifecycle and the cascade engine; this service never sets it
// directly.
type Service interface {
	Create(ctx context.Context, actor scope.Principal, input CreateApartmentInput) (*models.Apartment, error)
	GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*ApartmentWithBuilding, error)
	List(ctx context.Context, actor scope.Principal, params pagination.Params) (*ListPage, error)
	ListByFloor(ctx context.Context, actor scope.Principal, floorID uuid.UUID) ([]models.Apartment, error)
	Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateApartmentInput) (*models.Apartment, error)
	Delete(ctx context.Context, actor scope.Principal, id uuid.UUID) error
}

// CreateApartmentInput captures the fields required to add an apartment.
type CreateApartmentInput struct {
	FloorID    uuid.UUID
	RoomNumber string
	AreaSqm    decimal.Decimal
	Bedrooms   int
}

// UpdateApartmentInput captures the mutable apartment fields.
type UpdateApartmentInput struct {
	RoomNumber *string
	AreaSqm    *decimal.Decimal
	Bedrooms   *int
}

type service struct {
	repo   Repository
	floors floorFinder
}

// NewService builds an apartment service with the provided repositories.
func NewService(repo Repository, floors floorFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("apartment repository required")
	}
	if floors == nil {
		return nil, fmt.Errorf("floor repository required")
	}
	return &service{repo: repo, floors: floors}, nil
}

func (s *service) Create(ctx context.Context, actor scope.Principal, input CreateApartmentInput) (*models.Apartment, error) {
	if input.FloorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "floor id is required")
	}
	roomNumber := strings.TrimSpace(input.RoomNumber)
	if roomNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room number is required")
	}
	if input.Bedrooms <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bedrooms must be positive")
	}
	if input.AreaSqm.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "area must not be negative")
	}

	floor, err := s.floors.FindByID(ctx, input.FloorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "floor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load floor")
	}
	if !actor.Scope().AllowsBuilding(floor.BuildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "floor outside caller scope")
	}

	exists, err := s.repo.RoomNumberExists(ctx, input.FloorID, roomNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check room number")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "room number already exists on the floor")
	}

	apartment := &models.Apartment{
		FloorID:    input.FloorID,
		RoomNumber: roomNumber,
		Status:     enums.ApartmentStatusAvailable,
		AreaSqm:    input.AreaSqm,
		Bedrooms:   input.Bedrooms,
	}
	if err := s.repo.Create(ctx, apartment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create apartment")
	}
	return apartment, nil
}

func (s *service) GetByID(ctx context.Context, actor scope.Principal, id uuid.UUID) (*ApartmentWithBuilding, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "apartment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load apartment")
	}
	if !actor.Scope().AllowsBuilding(row.BuildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "apartment outside caller scope")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, actor scope.Principal, params pagination.Params) (*ListPage, error) {
	rows, err := s.repo.List(ctx, actor.Scope(), params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list apartments")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	page := &ListPage{Apartments: rows}
	if len(rows) > limit {
		page.Apartments = rows[:limit]
		last := page.Apartments[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) ListByFloor(ctx context.Context, actor scope.Principal, floorID uuid.UUID) ([]models.Apartment, error) {
	floor, err := s.floors.FindByID(ctx, floorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "floor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load floor")
	}
	if !actor.Scope().AllowsBuilding(floor.BuildingID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "floor outside caller scope")
	}
	apartments, err := s.repo.ListByFloor(ctx, floorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list apartments")
	}
	return apartments, nil
}

func (s *service) Update(ctx context.Context, actor scope.Principal, id uuid.UUID, input UpdateApartmentInput) (*models.Apartment, error) {
	row, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	apartment := row.Apartment

	if input.RoomNumber != nil {
		roomNumber := strings.TrimSpace(*input.RoomNumber)
		if roomNumber == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "room number must not be empty")
		}
		if roomNumber != apartment.RoomNumber {
			exists, err := s.repo.RoomNumberExists(ctx, apartment.FloorID, roomNumber)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check room number")
			}
			if exists {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "room number already exists on the floor")
			}
			apartment.RoomNumber = roomNumber
		}
	}
	if input.AreaSqm != nil {
		if input.AreaSqm.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "area must not be negative")
		}
		apartment.AreaSqm = *input.AreaSqm
	}
	if input.Bedrooms != nil {
		if *input.Bedrooms <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bedrooms must be positive")
		}
		apartment.Bedrooms = *input.Bedrooms
	}

	if err := s.repo.Update(ctx, &apartment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update apartment")
	}
	return &apartment, nil
}

// Delete soft-deletes an apartment. Blocked while the apartment carries any
// contract history; apartments that were ever under contract stay queryable.
func (s *service) Delete(ctx context.Context, actor scope.Principal, id uuid.UUID) error {
	row, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return err
	}

	hasHistory, err := s.repo.HasContractHistory(ctx, row.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check contract history")
	}
	if hasHistory {
		return pkgerrors.New(pkgerrors.CodeConflict, "apartment has contract history")
	}

	affected, err := s.repo.SoftDelete(ctx, row.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete apartment")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "apartment not found")
	}
	return nil
}
