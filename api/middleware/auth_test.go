package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/estatedesk/estatedesk-backend/pkg/auth"
	"github.com/estatedesk/estatedesk-backend/pkg/config"
	"github.com/estatedesk/estatedesk-backend/pkg/enums"
	"github.com/estatedesk/estatedesk-backend/pkg/scope"
)

type fakeSessionChecker struct {
	active bool
	err    error
}

func (f *fakeSessionChecker) HasSession(context.Context, string) (bool, error) {
	return f.active, f.err
}

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "estatedesk-test",
		ExpirationMinutes: 15,
	}
}

func TestAuthSeedsPrincipal(t *testing.T) {
	cfg := jwtTestConfig()
	userID := uuid.New()
	buildingID := uuid.New()

	token, err := pkgauth.MintAccessToken(cfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID:      userID,
		Role:        enums.UserRoleManager,
		BuildingIDs: []uuid.UUID{buildingID},
		JTI:         uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var got scope.Principal
	var found bool
	handler := Auth(cfg, &fakeSessionChecker{active: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !found {
		t.Fatal("expected principal in context")
	}
	if got.UserID != userID || got.Role != enums.UserRoleManager {
		t.Fatalf("unexpected principal %+v", got)
	}
	if len(got.BuildingIDs) != 1 || got.BuildingIDs[0] != buildingID {
		t.Fatalf("expected building assignment to survive, got %+v", got.BuildingIDs)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(jwtTestConfig(), &fakeSessionChecker{active: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := jwtTestConfig()
	token, err := pkgauth.MintAccessToken(cfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	handler := Auth(cfg, &fakeSessionChecker{active: false}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsForgedToken(t *testing.T) {
	forged, err := pkgauth.MintAccessToken(config.JWTConfig{
		Secret:            "other-secret",
		Issuer:            "estatedesk-test",
		ExpirationMinutes: 15,
	}, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	handler := Auth(jwtTestConfig(), &fakeSessionChecker{active: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
