package timeline

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, kind Kind, limit, offset int) ([]*Event, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
