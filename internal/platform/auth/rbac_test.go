package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func contextWithUser(role string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithCurrentUser(req.Context(), CurrentUser{ID: uuid.New(), Role: role}))
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole_Allowed(t *testing.T) {
	c := contextWithUser(RolePatient)
	if err := RequireRole(RolePatient, RoleDoctor)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_WrongRole(t *testing.T) {
	c := contextWithUser(RoleDoctor)
	err := RequireRole(RolePatient)(okHandler)(c)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_NotOnboarded(t *testing.T) {
	c := contextWithUser("")
	err := RequireRole(RolePatient)(okHandler)(c)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequirePrincipal(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	expectStatus(t, RequirePrincipal()(okHandler)(c), http.StatusUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{Subject: "user_1"}))
	c = e.NewContext(req, httptest.NewRecorder())
	if err := RequirePrincipal()(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserFrom(t *testing.T) {
	if _, err := UserFrom(contextWithUser("")); err == nil {
		t.Fatal("expected error without onboarded user")
	}
	u, err := UserFrom(contextWithUser(RoleDoctor))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != RoleDoctor {
		t.Errorf("expected doctor, got %s", u.Role)
	}
}
