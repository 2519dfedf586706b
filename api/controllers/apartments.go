package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/estatedesk/estatedesk-backend/api/responses"
	"github.com/estatedesk/estatedesk-backend/api/validators"
	"github.com/estatedesk/estatedesk-backend/internal/apartments"
	pkgerrors "github.com/estatedesk/estatedesk-backend/pkg/errors"
	"github.com/estatedesk/estatedesk-backend/pkg/logger"
	"github.com/estatedesk/estatedesk-backend/pkg/pagination"
)

type createApartmentRequest struct {
	FloorID    uuid.UUID       `json:"floor_id" validate:"required"`
	RoomNumber string          `json:"room_number" validate:"required"`
	AreaSqm    decimal.Decimal `json:"area_sqm"`
	Bedrooms   int             `json:"bedrooms" validate:"min=0"`
}

type updateApartmentRequest struct {
	RoomNumber *string          `json:"room_number,omitempty" validate:"omitempty,min=1"`
	AreaSqm    *decimal.Decimal `json:"area_sqm,omitempty"`
	Bedrooms   *int             `json:"bedrooms,omitempty" validate:"omitempty,min=0"`
}

// ApartmentCreate adds an apartment to a floor.
func ApartmentCreate(svc apartments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "apartment service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createApartmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		apartment, err := svc.Create(r.Context(), principal, apartments.CreateApartmentInput{
			FloorID:    body.FloorID,
			RoomNumber: body.RoomNumber,
			AreaSqm:    body.AreaSqm,
			Bedrooms:   body.Bedrooms,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, apartment)
	}
}

// ApartmentList returns a cursor-paginated page of visible apartments.
func ApartmentList(svc apartments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "apartment service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), principal, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// ApartmentListByFloor returns the apartments on one floor.
func ApartmentListByFloor(svc apartments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "apartment service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		floorID, err := parseIDParam(r, "floorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByFloor(r.Context(), principal, floorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// ApartmentDetail returns one apartment with its building reference.
func ApartmentDetail(svc apartments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "apartment service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseIDParam(r, "apartmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		apartment, err := svc.GetByID(r.Context(), principal, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, apartment)
	}
}

// ApartmentUpdate adjusts the mutable apartment fields. Occupancy status
// is owned by the contract lifecycle and cannot be set here.
func ApartmentUpdate(svc apartments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "apartment service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseIDParam(r, "apartmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateApartmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		apartment, err := svc.Update(r.Context(), principal, id, apartments.UpdateApartmentInput{
			RoomNumber: body.RoomNumber,
			AreaSqm:    body.AreaSqm,
			Bedrooms:   body.Bedrooms,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, apartment)
	}
}

// ApartmentDelete soft-deletes an apartment without contract history.
func ApartmentDelete(svc apartments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "apartment service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseIDParam(r, "apartmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), principal, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
