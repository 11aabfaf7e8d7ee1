package medication

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/validate"
)

type Medication struct {
	ID           uuid.UUID  `json:"id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	Name         string     `json:"name"`
	Dosage       string     `json:"dosage"`
	Frequency    string     `json:"frequency"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	Active       bool       `json:"active"`
	PrescribedBy string     `json:"prescribed_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Input is the create and update body. Active defaults to true.
type Input struct {
	Name         string `json:"name" validate:"required,max=120"`
	Dosage       string `json:"dosage" validate:"required,max=60"`
	Frequency    string `json:"frequency" validate:"required,max=60"`
	StartDate    string `json:"start_date" validate:"required,date"`
	EndDate      string `json:"end_date" validate:"omitempty,date"`
	Notes        string `json:"notes" validate:"max=1000"`
	Active       *bool  `json:"active"`
	PrescribedBy string `json:"prescribed_by" validate:"max=120"`
}

func (in Input) Build(patientID uuid.UUID) (*Medication, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Dosage = strings.TrimSpace(in.Dosage)
	in.Frequency = strings.TrimSpace(in.Frequency)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	m := &Medication{
		PatientID:    patientID,
		Name:         in.Name,
		Dosage:       in.Dosage,
		Frequency:    in.Frequency,
		StartDate:    validate.Date(in.StartDate),
		EndDate:      validate.OptionalDate(in.EndDate),
		Notes:        strings.TrimSpace(in.Notes),
		Active:       true,
		PrescribedBy: strings.TrimSpace(in.PrescribedBy),
	}
	if in.Active != nil {
		m.Active = *in.Active
	}
	if m.EndDate != nil && m.EndDate.Before(m.StartDate) {
		return nil, apperr.Validation("end_date cannot be before start_date")
	}
	return m, nil
}
