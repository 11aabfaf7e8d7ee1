package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/platform/auth"
)

type captureRecorder struct {
	entries []AuditEntry
	err     error
}

func (r *captureRecorder) RecordAccess(entry AuditEntry) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func TestAudit_RecordsAccess(t *testing.T) {
	rec := &captureRecorder{}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/lab-reports/abc/analyze", nil)
	req.Header.Set("User-Agent", "nrivaa-app/1.0")
	ctx := auth.WithPrincipal(req.Context(), auth.Principal{Subject: "user_1", Role: auth.RolePatient})
	ctx = auth.WithCurrentUser(ctx, auth.CurrentUser{ID: uuid.New(), CustomID: "#Nrivaa001", Role: auth.RolePatient})
	c := e.NewContext(req.WithContext(ctx), httptest.NewRecorder())
	c.Set("request_id", "req-123")

	err := Audit(zerolog.Nop(), rec)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(rec.entries))
	}
	got := rec.entries[0]
	if got.Subject != "user_1" || got.CustomID != "#Nrivaa001" || got.Role != auth.RolePatient {
		t.Errorf("unexpected identity in entry %+v", got)
	}
	if got.Resource != "lab-reports" || got.ResourceID != "abc" {
		t.Errorf("unexpected resource %q/%q", got.Resource, got.ResourceID)
	}
	if got.Action != "read" || got.StatusCode != http.StatusOK || got.RequestID != "req-123" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.UserAgent != "nrivaa-app/1.0" {
		t.Errorf("expected user agent, got %q", got.UserAgent)
	}
}

func TestAudit_SkipsNonAuditablePaths(t *testing.T) {
	rec := &captureRecorder{}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), httptest.NewRecorder())

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.entries) != 0 {
		t.Errorf("expected no audit entries, got %d", len(rec.entries))
	}
}

func TestAudit_RecorderErrorDoesNotBreakRequest(t *testing.T) {
	rec := &captureRecorder{err: errors.New("disk full")}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/v1/me", nil), httptest.NewRecorder())

	if err := Audit(zerolog.Nop(), rec)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.entries[0].Action != "delete" {
		t.Errorf("expected delete action, got %s", rec.entries[0].Action)
	}
}

func TestAudit_NilRecorder(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/medications", nil), httptest.NewRecorder())
	if err := Audit(zerolog.Nop(), nil)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHttpMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range tests {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("httpMethodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}

func TestSplitResource(t *testing.T) {
	tests := []struct {
		path     string
		resource string
		id       string
	}{
		{"/api/v1/medications", "medications", ""},
		{"/api/v1/medications/42", "medications", "42"},
		{"/api/v1/doctors/%23DrNrivaa001", "doctors", "%23DrNrivaa001"},
		{"/api/v1/", "unknown", ""},
	}
	for _, tt := range tests {
		r, id := splitResource(tt.path)
		if r != tt.resource || id != tt.id {
			t.Errorf("splitResource(%q) = (%q, %q), want (%q, %q)", tt.path, r, id, tt.resource, tt.id)
		}
	}
}

func TestAuditRecorderFunc(t *testing.T) {
	var called bool
	f := AuditRecorderFunc(func(entry AuditEntry) error {
		called = entry.Path == "/api/v1/me"
		return nil
	})
	_ = f.RecordAccess(AuditEntry{Path: "/api/v1/me"})
	if !called {
		t.Error("expected func to be invoked with the entry")
	}
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
