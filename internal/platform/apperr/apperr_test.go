package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation("bad"), http.StatusBadRequest},
		{Unauthorized("no session"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Upstream("model down", errors.New("503")), http.StatusBadGateway},
		{Busy("busy"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("missing")), http.StatusNotFound},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMessage(t *testing.T) {
	if got := Message(Conflict("phone number already registered")); got != "phone number already registered" {
		t.Errorf("unexpected message %q", got)
	}
	if got := Message(errors.New("pq: connection reset")); got != GenericMessage {
		t.Errorf("expected generic message for internal errors, got %q", got)
	}
	if got := Message(fmt.Errorf("onboard: %w", Busy("system is busy"))); got != "system is busy" {
		t.Errorf("expected wrapped message, got %q", got)
	}
}

func TestUpstream_KeepsCause(t *testing.T) {
	cause := errors.New("status 500")
	err := Upstream("assistant unavailable", cause)
	if !errors.Is(err, ErrUpstream) {
		t.Error("expected ErrUpstream kind")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if Message(err) != "assistant unavailable" {
		t.Errorf("cause must not leak into message, got %q", Message(err))
	}
}
