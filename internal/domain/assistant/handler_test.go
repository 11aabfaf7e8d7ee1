package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/auth"
)

func withUser(req *http.Request, u auth.CurrentUser) *http.Request {
	return req.WithContext(auth.WithCurrentUser(req.Context(), u))
}

func TestHandler_Chat(t *testing.T) {
	svc, _, _ := newTestService(10)
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", strings.NewReader(`{"message":"Is 7 hours of sleep enough?"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Chat(e.NewContext(withUser(req, patient()), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Success bool         `json:"success"`
		Data    ChatResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.Reply == nil || body.Data.Reply.Content != "Drink plenty of water and rest." {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Chat_Upstream(t *testing.T) {
	svc, _, model := newTestService(10)
	model.err = errors.New("timeout")
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.Chat(echo.New().NewContext(withUser(req, patient()), httptest.NewRecorder()))
	if apperr.Status(err) != http.StatusBadGateway {
		t.Fatalf("expected 502, got %v", err)
	}
}

func TestHandler_History(t *testing.T) {
	svc, _, _ := newTestService(10)
	h := NewHandler(svc)
	u := patient()
	svc.Chat(context.Background(), u, ChatRequest{Message: "hi"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assistant/history", nil)
	if err := h.History(echo.New().NewContext(withUser(req, u), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data struct {
			Items []Message `json:"items"`
			Total int       `json:"total"`
		} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Data.Total != 2 || len(body.Data.Items) != 2 {
		t.Errorf("unexpected history %s", rec.Body.String())
	}
}
