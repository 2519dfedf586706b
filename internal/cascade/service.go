package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/logger"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service propagates building- and floor-level status changes to children.
// Each cascade is one transaction: a reader never sees the parent status
// changed without the children reflecting it.
//
// Entering MAINTENANCE is forced onto every child apartment, occupied or
// not. Returning to ACTIVE releases only apartments still MAINTENANCE back
// to AVAILABLE; exiting maintenance never evicts an occupant.
type Service interface {
	SetBuildingStatus(ctx context.Context, actor scope.Principal, buildingID uuid.UUID, status enums.BuildingStatus) error
	SetFloorStatus(ctx context.Context, actor scope.Principal, floorID uuid.UUID, status enums.FloorStatus) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds a cascade service with the provided repository.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cascade repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) SetBuildingStatus(ctx context.Context, actor scope.Principal, buildingID uuid.UUID, status enums.BuildingStatus) error {
	if buildingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "building id is required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid building status %q", status))
	}
	if !actor.Scope().AllowsBuilding(buildingID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "building outside caller scope")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.UpdateBuildingStatus(ctx, buildingID, status)
		if err != nil {
			return fmt.Errorf("update building status: %w", err)
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "building not found")
		}

		switch status {
		case enums.BuildingStatusMaintenance:
			if err := repo.UpdateFloorStatusesForBuilding(ctx, buildingID, enums.FloorStatusMaintenance); err != nil {
				return fmt.Errorf("cascade floors to maintenance: %w", err)
			}
			if err := repo.ForceApartmentsMaintenanceForBuilding(ctx, buildingID); err != nil {
				return fmt.Errorf("cascade apartments to maintenance: %w", err)
			}
		case enums.BuildingStatusActive:
			if err := repo.UpdateFloorStatusesForBuilding(ctx, buildingID, enums.FloorStatusActive); err != nil {
				return fmt.Errorf("cascade floors to active: %w", err)
			}
			if err := repo.ReleaseMaintenanceApartmentsForBuilding(ctx, buildingID); err != nil {
				return fmt.Errorf("release maintenance apartments: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "building status cascade")
	}

	logCtx := s.logg.WithBuildingID(ctx, buildingID.String())
	logCtx = s.logg.WithField(logCtx, "status", status.String())
	s.logg.Info(logCtx, "building status cascaded")
	return nil
}

func (s *service) SetFloorStatus(ctx context.Context, actor scope.Principal, floorID uuid.UUID, status enums.FloorStatus) error {
	if floorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "floor id is required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid floor status %q", status))
	}

	floor, err := s.repo.FindFloor(ctx, floorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "floor not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load floor")
	}
	if !actor.Scope().AllowsBuilding(floor.BuildingID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "floor outside caller scope")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.UpdateFloorStatus(ctx, floorID, status)
		if err != nil {
			return fmt.Errorf("update floor status: %w", err)
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "floor not found")
		}

		switch status {
		case enums.FloorStatusMaintenance:
			if err := repo.ForceApartmentsMaintenanceForFloor(ctx, floorID); err != nil {
				return fmt.Errorf("cascade apartments to maintenance: %w", err)
			}
		case enums.FloorStatusActive:
			if err := repo.ReleaseMaintenanceApartmentsForFloor(ctx, floorID); err != nil {
				return fmt.Errorf("release maintenance apartments: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "floor status cascade")
	}

	logCtx := s.logg.WithBuildingID(ctx, floor.BuildingID.String())
	logCtx = s.logg.WithField(logCtx, "floor_id", floorID.String())
	logCtx = s.logg.WithField(logCtx, "status", status.String())
	s.logg.Info(logCtx, "floor status cascaded")
	return nil
}
