package main

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/config"
	"github.com/nrivaa/nrivaa/internal/platform/db"
	"github.com/nrivaa/nrivaa/internal/platform/llm"
	"github.com/nrivaa/nrivaa/internal/platform/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                "8000",
		Env:                 "test",
		AuthSigningKey:      hex.EncodeToString([]byte("test-secret-key-for-unit-tests-only")),
		CORSOrigins:         []string{"http://localhost:3000"},
		BodyLimit:           "12M",
		LLMTimeout:          time.Second,
		CustomIDMaxAttempts: 5,
		ChatHistoryTurns:    10,
	}
}

func routeSet(t *testing.T, cfg *config.Config) map[string]bool {
	t.Helper()
	e, err := newServer(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	routes := make(map[string]bool)
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	return routes
}

func TestMigrationSource_Embedded(t *testing.T) {
	migs, err := db.NewMigrator(nil, migrationSource("")).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) != 4 {
		t.Fatalf("expected 4 embedded migrations, got %d", len(migs))
	}
	for i, m := range migs {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if m.SQL == "" {
			t.Errorf("migration %s is empty", m.Name)
		}
	}
}

func TestMigrationSource_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_extra.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	migs, err := db.NewMigrator(nil, migrationSource(dir)).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) != 1 || migs[0].Name != "001_extra.sql" {
		t.Errorf("unexpected migrations %+v", migs)
	}
}

func TestNewServer_RegistersRoutes(t *testing.T) {
	routes := routeSet(t, testConfig())
	want := []string{
		"GET /health",
		"GET /health/db",
		"GET /blobs/*",
		"POST /api/v1/onboarding/patient",
		"POST /api/v1/onboarding/doctor",
		"GET /api/v1/me",
		"DELETE /api/v1/me",
		"PUT /api/v1/profile/contact",
		"GET /api/v1/profile/patient",
		"PUT /api/v1/profile/doctor",
		"GET /api/v1/doctors/:custom_id",
		"GET /api/v1/timeline",
		"POST /api/v1/medications",
		"POST /api/v1/lab-reports",
		"POST /api/v1/lab-reports/:id/analyze",
		"POST /api/v1/assistant/chat",
		"DELETE /api/v1/assistant/history",
	}
	for _, r := range want {
		if !routes[r] {
			t.Errorf("route %s not registered", r)
		}
	}
}

func TestNewServer_ExternalBlobStore(t *testing.T) {
	cfg := testConfig()
	cfg.BlobAPIURL = "https://storage.example.com"
	if routeSet(t, cfg)["GET /blobs/*"] {
		t.Error("in-memory blob route should not be served with an external store")
	}
}

func TestNewServer_InvalidSigningKey(t *testing.T) {
	cfg := testConfig()
	cfg.AuthSigningKey = "not-hex"
	if _, err := newServer(cfg, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected error for a malformed signing key")
	}
}

func TestNewServer_Health(t *testing.T) {
	e, err := newServer(testConfig(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on every response")
	}
}

func TestNewServer_APIRequiresToken(t *testing.T) {
	e, err := newServer(testConfig(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestNewModel_DisabledWithoutKey(t *testing.T) {
	model := newModel(testConfig())
	_, err := model.Generate(context.Background(), "", []llm.Turn{{Role: llm.RoleUser, Text: "hello"}})
	if !errors.Is(err, llm.ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestRequestTimeout_ExemptRoutes(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		deadline bool
	}{
		{http.MethodPost, "/api/v1/lab-reports", false},
		{http.MethodGet, "/api/v1/lab-reports", false},
		{http.MethodPost, "/api/v1/lab-reports/0b5c1f9e-2f43-4b7c-9d0a-7d6f1a2b3c4d/analyze", false},
		{http.MethodPost, "/api/v1/assistant/chat", false},
		{http.MethodGet, "/api/v1/me", true},
		{http.MethodPost, "/api/v1/medications", true},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(tt.method, tt.path, nil), httptest.NewRecorder())

			var hasDeadline bool
			h := middleware.RequestTimeout(requestTimeout, timeoutExempt...)(func(c echo.Context) error {
				_, hasDeadline = c.Request().Context().Deadline()
				return nil
			})
			if err := h(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if hasDeadline != tt.deadline {
				t.Errorf("deadline set = %v, want %v", hasDeadline, tt.deadline)
			}
		})
	}
}
