package profile

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreatePatient(ctx context.Context, p *PatientProfile) error
	GetPatient(ctx context.Context, userID uuid.UUID) (*PatientProfile, error)
	UpdatePatient(ctx context.Context, p *PatientProfile) error

	CreateDoctor(ctx context.Context, d *DoctorProfile) error
	GetDoctor(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error)
	UpdateDoctor(ctx context.Context, d *DoctorProfile) error

	ListDoctors(ctx context.Context, specialization string, limit, offset int) ([]*DoctorCard, int, error)
	GetDoctorCard(ctx context.Context, customID string) (*DoctorCard, error)
}
