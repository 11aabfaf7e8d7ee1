// Package accesslog persists who read or changed which health record. It
// plugs into middleware.Audit as its AuditRecorder.
package accesslog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/platform/middleware"
)

const writeTimeout = 2 * time.Second

// Entry is one row of the access_log table.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Subject    string    `json:"subject"`
	Role       string    `json:"role"`
	CustomID   string    `json:"custom_id"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	Action     string    `json:"action"` // read, create, update, delete
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	RequestID  string    `json:"request_id"`
	AccessedAt time.Time `json:"accessed_at"`
}

type Store interface {
	Insert(ctx context.Context, e *Entry) error
}

// Recorder writes audit entries for authenticated callers. Requests that
// never got past authentication carry no subject and are only logged.
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

func (r *Recorder) RecordAccess(a middleware.AuditEntry) error {
	if a.Subject == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	e := FromAudit(a)
	if err := r.store.Insert(ctx, e); err != nil {
		return fmt.Errorf("access log: %w", err)
	}
	r.logger.Debug().
		Str("subject", e.Subject).
		Str("resource", e.Resource).
		Str("action", e.Action).
		Msg("access recorded")
	return nil
}

// FromAudit converts a middleware entry into a row, stamping the time when
// the middleware left it empty.
func FromAudit(a middleware.AuditEntry) *Entry {
	at := a.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &Entry{
		Subject:    a.Subject,
		Role:       a.Role,
		CustomID:   a.CustomID,
		Resource:   a.Resource,
		ResourceID: a.ResourceID,
		Action:     a.Action,
		Method:     a.Method,
		Path:       a.Path,
		StatusCode: a.StatusCode,
		IPAddress:  a.IPAddress,
		UserAgent:  a.UserAgent,
		RequestID:  a.RequestID,
		AccessedAt: at,
	}
}
