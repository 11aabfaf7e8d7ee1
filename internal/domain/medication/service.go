package medication

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/domain/timeline"
	"github.com/nrivaa/nrivaa/internal/platform/apperr"
)

type Service struct {
	meds     Repository
	timeline timeline.Recorder
	logger   zerolog.Logger
}

func NewService(meds Repository, events timeline.Recorder, logger zerolog.Logger) *Service {
	return &Service{meds: meds, timeline: events, logger: logger}
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, active *bool, limit, offset int) ([]*Medication, int, error) {
	return s.meds.ListByPatient(ctx, patientID, active, limit, offset)
}

// Get returns the medication if it belongs to patientID. Other patients'
// medications are reported as not found.
func (s *Service) Get(ctx context.Context, patientID, id uuid.UUID) (*Medication, error) {
	m, err := s.meds.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && m.PatientID != patientID) {
		return nil, apperr.NotFound("medication not found")
	}
	return m, err
}

func (s *Service) Create(ctx context.Context, patientID uuid.UUID, in Input) (*Medication, error) {
	m, err := in.Build(patientID)
	if err != nil {
		return nil, err
	}
	if err := s.meds.Create(ctx, m); err != nil {
		return nil, err
	}

	ref := m.ID
	if err := s.timeline.Record(ctx, &timeline.Event{
		PatientID:   patientID,
		Kind:        timeline.KindMedication,
		Title:       fmt.Sprintf("Started %s", m.Name),
		Description: fmt.Sprintf("%s, %s", m.Dosage, m.Frequency),
		OccurredAt:  m.StartDate,
		ReferenceID: &ref,
	}); err != nil {
		s.logger.Warn().Err(err).Str("medication_id", m.ID.String()).Msg("failed to record timeline event")
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, patientID, id uuid.UUID, in Input) (*Medication, error) {
	existing, err := s.Get(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	m, err := in.Build(patientID)
	if err != nil {
		return nil, err
	}
	m.ID = existing.ID
	m.CreatedAt = existing.CreatedAt
	if err := s.meds.Update(ctx, m); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("medication not found")
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	if _, err := s.Get(ctx, patientID, id); err != nil {
		return err
	}
	if err := s.meds.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("medication not found")
		}
		return err
	}
	return nil
}
