package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/estatedesk/estatedesk-backend/api/middleware"
	"github.com/estatedesk/estatedesk-backend/internal/buildings"
	"github.com/estatedesk/estatedesk-backend/pkg/db/models"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
	"github.com/estatedesk/estatedesk-backend/pkg/types"
)

type fakeBuildingService struct {
	created *buildings.CreateBuildingInput
	actor   scope.Principal
}

func (f *fakeBuildingService) Create(_ context.Context, actor scope.Principal, input buildings.CreateBuildingInput) (*models.Building, error) {
	f.actor = actor
	f.created = &input
	return &models.Building{ID: uuid.New(), Name: input.Name, Address: input.Address}, nil
}

func (f *fakeBuildingService) GetByID(context.Context, scope.Principal, uuid.UUID) (*models.Building, error) {
	return &models.Building{ID: uuid.New()}, nil
}

func (f *fakeBuildingService) List(context.Context, scope.Principal) ([]models.Building, error) {
	return nil, nil
}

func (f *fakeBuildingService) Update(context.Context, scope.Principal, uuid.UUID, buildings.UpdateBuildingInput) (*models.Building, error) {
	return &models.Building{ID: uuid.New()}, nil
}

func (f *fakeBuildingService) Delete(context.Context, scope.Principal, uuid.UUID) error {
	return nil
}

func adminRequest(method, target string, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	principal := scope.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	return req.WithContext(middleware.WithPrincipal(req.Context(), principal))
}

func TestBuildingCreate(t *testing.T) {
	svc := &fakeBuildingService{}
	handler := BuildingCreate(svc, nil)

	req := adminRequest(http.MethodPost, "/api/v1/buildings", `{"name":"North Tower","address":"1 Main St","amenities":["gym"]}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil || svc.created.Name != "North Tower" {
		t.Fatalf("unexpected input %+v", svc.created)
	}
	if !svc.actor.IsAdmin() {
		t.Fatal("expected principal to reach the service")
	}
}

func TestBuildingCreateRejectsMissingFields(t *testing.T) {
	svc := &fakeBuildingService{}
	handler := BuildingCreate(svc, nil)

	req := adminRequest(http.MethodPost, "/api/v1/buildings", `{"name":"No Address"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.created != nil {
		t.Fatal("service should not be called on invalid input")
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if body.Error.Details == nil {
		t.Fatal("expected field details in validation error")
	}
}

func TestBuildingCreateRequiresPrincipal(t *testing.T) {
	handler := BuildingCreate(&fakeBuildingService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/buildings", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBuildingDetailRejectsBadID(t *testing.T) {
	handler := BuildingDetail(&fakeBuildingService{}, nil)

	req := adminRequest(http.MethodGet, "/api/v1/buildings/not-a-uuid", "")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("buildingId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
