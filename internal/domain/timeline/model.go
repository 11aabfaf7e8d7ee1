package timeline

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindOnboarding Kind = "onboarding"
	KindMedication Kind = "medication"
	KindLabReport  Kind = "lab_report"
	KindAnalysis   Kind = "analysis"
	KindNote       Kind = "note"
	KindVisit      Kind = "visit"
)

var validKinds = map[Kind]bool{
	KindOnboarding: true, KindMedication: true, KindLabReport: true,
	KindAnalysis: true, KindNote: true, KindVisit: true,
}

func (k Kind) Valid() bool { return validKinds[k] }

// Manual reports whether patients may create and delete events of this kind
// themselves. The rest are written by the system.
func (k Kind) Manual() bool { return k == KindNote || k == KindVisit }

type Event struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ManualEventRequest struct {
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}
