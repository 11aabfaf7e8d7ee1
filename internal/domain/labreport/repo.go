package labreport

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error)
	// SaveAnalysis writes Analysis, AnalysisSource, Findings and AnalyzedAt.
	SaveAnalysis(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
}
