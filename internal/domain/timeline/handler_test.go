package timeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nrivaa/nrivaa/internal/platform/auth"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), svc, echo.New()
}

func asPatient(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(auth.WithCurrentUser(req.Context(), auth.CurrentUser{ID: id, Role: auth.RolePatient}))
}

func TestHandler_Create(t *testing.T) {
	h, _, e := newTestHandler()
	patient := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/timeline", strings.NewReader(`{"kind":"visit","title":"Cardiology follow-up"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(asPatient(req, patient), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var body struct {
		Success bool  `json:"success"`
		Data    Event `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !body.Success || body.Data.Title != "Cardiology follow-up" {
		t.Errorf("unexpected response %s", rec.Body.String())
	}
}

func TestHandler_Create_NotOnboarded(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timeline", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := h.Create(c); err == nil {
		t.Fatal("expected error without current user")
	}
}

func TestHandler_List(t *testing.T) {
	h, svc, e := newTestHandler()
	patient := uuid.New()
	_ = svc.Record(context.Background(), &Event{PatientID: patient, Kind: KindNote, Title: "a"})
	_ = svc.Record(context.Background(), &Event{PatientID: patient, Kind: KindVisit, Title: "b"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timeline?kind=note", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(asPatient(req, patient), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data struct {
			Items []Event `json:"items"`
			Total int     `json:"total"`
		} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Data.Total != 1 || body.Data.Items[0].Kind != KindNote {
		t.Errorf("unexpected list response %s", rec.Body.String())
	}
}

func TestHandler_Delete_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	c := e.NewContext(asPatient(req, uuid.New()), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.Delete(c); err == nil {
		t.Fatal("expected error for invalid id")
	}
}
