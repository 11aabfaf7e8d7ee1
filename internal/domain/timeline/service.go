package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
)

// Recorder is how other domains append to a patient's timeline.
type Recorder interface {
	Record(ctx context.Context, e *Event) error
}

type Service struct {
	events Repository
	now    func() time.Time
}

func NewService(events Repository) *Service {
	return &Service{events: events, now: time.Now}
}

// Record stores a system generated event. It joins the caller's transaction
// when ctx carries one.
func (s *Service) Record(ctx context.Context, e *Event) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("timeline event without patient")
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("invalid timeline kind %q", e.Kind)
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now().UTC()
	}
	return s.events.Create(ctx, e)
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, kind Kind, limit, offset int) ([]*Event, int, error) {
	if kind != "" && !kind.Valid() {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown timeline kind %q", kind))
	}
	return s.events.ListByPatient(ctx, patientID, kind, limit, offset)
}

func (s *Service) AddManual(ctx context.Context, patientID uuid.UUID, req ManualEventRequest) (*Event, error) {
	if !req.Kind.Manual() {
		return nil, apperr.Validation("kind must be note or visit")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if len(title) > 200 {
		return nil, apperr.Validation("title must be at most 200 characters")
	}

	e := &Event{
		PatientID:   patientID,
		Kind:        req.Kind,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
	}
	if req.OccurredAt != nil {
		if req.OccurredAt.After(s.now().Add(24 * time.Hour)) {
			return nil, apperr.Validation("occurred_at cannot be in the future")
		}
		e.OccurredAt = req.OccurredAt.UTC()
	}
	if err := s.Record(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteManual removes one of the patient's own notes or visits. Events that
// belong to someone else are reported as missing.
func (s *Service) DeleteManual(ctx context.Context, patientID, id uuid.UUID) error {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("timeline event not found")
		}
		return err
	}
	if e.PatientID != patientID {
		return apperr.NotFound("timeline event not found")
	}
	if !e.Kind.Manual() {
		return apperr.Forbidden("only notes and visits can be deleted")
	}
	return s.events.Delete(ctx, id)
}
