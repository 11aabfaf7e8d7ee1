package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/db"
)

type Service struct {
	profiles Repository
}

func NewService(profiles Repository) *Service {
	return &Service{profiles: profiles}
}

func (s *Service) GetPatient(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	p, err := s.profiles.GetPatient(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("patient profile not found")
	}
	return p, err
}

func (s *Service) UpdatePatient(ctx context.Context, userID uuid.UUID, in PatientInput) (*PatientProfile, error) {
	p, err := in.Build(userID)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdatePatient(ctx, p); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("patient profile not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) GetDoctor(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	d, err := s.profiles.GetDoctor(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("doctor profile not found")
	}
	return d, err
}

func (s *Service) UpdateDoctor(ctx context.Context, userID uuid.UUID, in DoctorInput) (*DoctorProfile, error) {
	d, err := in.Build(userID)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdateDoctor(ctx, d); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("doctor profile not found")
		}
		if constraint, ok := db.UniqueViolation(err); ok && constraint == LicenseConstraint {
			return nil, apperr.Conflict("license number already registered")
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, specialization string, limit, offset int) ([]*DoctorCard, int, error) {
	return s.profiles.ListDoctors(ctx, strings.TrimSpace(specialization), limit, offset)
}

// GetDoctorCard accepts the custom ID with or without its leading '#'.
func (s *Service) GetDoctorCard(ctx context.Context, customID string) (*DoctorCard, error) {
	customID = strings.TrimSpace(customID)
	if customID == "" {
		return nil, apperr.Validation("doctor id is required")
	}
	if !strings.HasPrefix(customID, "#") {
		customID = "#" + customID
	}
	c, err := s.profiles.GetDoctorCard(ctx, customID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("doctor not found")
	}
	return c, err
}
