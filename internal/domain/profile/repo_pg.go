package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `user_id, date_of_birth, gender, blood_group, height_cm, weight_kg,
	allergies, chronic_conditions, emergency_contact_name, emergency_contact_phone, updated_at`

func scanPatient(row pgx.Row) (*PatientProfile, error) {
	var p PatientProfile
	err := row.Scan(&p.UserID, &p.DateOfBirth, &p.Gender, &p.BloodGroup, &p.HeightCM, &p.WeightKG,
		&p.Allergies, &p.ChronicConditions, &p.EmergencyContactName, &p.EmergencyContactPhone, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) CreatePatient(ctx context.Context, p *PatientProfile) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_profiles (user_id, date_of_birth, gender, blood_group, height_cm, weight_kg,
			allergies, chronic_conditions, emergency_contact_name, emergency_contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING updated_at`,
		p.UserID, p.DateOfBirth, p.Gender, p.BloodGroup, p.HeightCM, p.WeightKG,
		p.Allergies, p.ChronicConditions, p.EmergencyContactName, p.EmergencyContactPhone,
	).Scan(&p.UpdatedAt)
}

func (r *repoPG) GetPatient(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient_profiles WHERE user_id = $1`, userID))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("patient profile %s: %w", userID, apperr.ErrNotFound)
	}
	return p, err
}

func (r *repoPG) UpdatePatient(ctx context.Context, p *PatientProfile) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient_profiles SET date_of_birth=$2, gender=$3, blood_group=$4, height_cm=$5,
			weight_kg=$6, allergies=$7, chronic_conditions=$8, emergency_contact_name=$9,
			emergency_contact_phone=$10, updated_at=NOW()
		WHERE user_id = $1
		RETURNING updated_at`,
		p.UserID, p.DateOfBirth, p.Gender, p.BloodGroup, p.HeightCM,
		p.WeightKG, p.Allergies, p.ChronicConditions, p.EmergencyContactName,
		p.EmergencyContactPhone,
	).Scan(&p.UpdatedAt)
	if db.IsNoRows(err) {
		return fmt.Errorf("patient profile %s: %w", p.UserID, apperr.ErrNotFound)
	}
	return err
}

const doctorCols = `user_id, specialization, license_number, years_of_experience, hospital,
	consultation_fee, bio, updated_at`

func scanDoctor(row pgx.Row) (*DoctorProfile, error) {
	var d DoctorProfile
	err := row.Scan(&d.UserID, &d.Specialization, &d.LicenseNumber, &d.YearsOfExperience, &d.Hospital,
		&d.ConsultationFee, &d.Bio, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) CreateDoctor(ctx context.Context, d *DoctorProfile) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_profiles (user_id, specialization, license_number, years_of_experience,
			hospital, consultation_fee, bio)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING updated_at`,
		d.UserID, d.Specialization, d.LicenseNumber, d.YearsOfExperience,
		d.Hospital, d.ConsultationFee, d.Bio,
	).Scan(&d.UpdatedAt)
}

func (r *repoPG) GetDoctor(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor_profiles WHERE user_id = $1`, userID))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("doctor profile %s: %w", userID, apperr.ErrNotFound)
	}
	return d, err
}

func (r *repoPG) UpdateDoctor(ctx context.Context, d *DoctorProfile) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctor_profiles SET specialization=$2, license_number=$3, years_of_experience=$4,
			hospital=$5, consultation_fee=$6, bio=$7, updated_at=NOW()
		WHERE user_id = $1
		RETURNING updated_at`,
		d.UserID, d.Specialization, d.LicenseNumber, d.YearsOfExperience,
		d.Hospital, d.ConsultationFee, d.Bio,
	).Scan(&d.UpdatedAt)
	if db.IsNoRows(err) {
		return fmt.Errorf("doctor profile %s: %w", d.UserID, apperr.ErrNotFound)
	}
	return err
}

const cardSelect = `SELECT u.custom_id, u.full_name, d.specialization, d.years_of_experience,
	d.hospital, d.consultation_fee, d.bio
	FROM doctor_profiles d JOIN users u ON u.id = d.user_id`

func scanCard(row pgx.Row) (*DoctorCard, error) {
	var c DoctorCard
	err := row.Scan(&c.CustomID, &c.FullName, &c.Specialization, &c.YearsOfExperience,
		&c.Hospital, &c.ConsultationFee, &c.Bio)
	return &c, err
}

func (r *repoPG) ListDoctors(ctx context.Context, specialization string, limit, offset int) ([]*DoctorCard, int, error) {
	where := ` WHERE ($1 = '' OR d.specialization ILIKE $1)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctor_profiles d`+where, specialization).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		cardSelect+where+` ORDER BY u.full_name, u.custom_id LIMIT $2 OFFSET $3`,
		specialization, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*DoctorCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) GetDoctorCard(ctx context.Context, customID string) (*DoctorCard, error) {
	c, err := scanCard(r.conn(ctx).QueryRow(ctx, cardSelect+` WHERE u.custom_id = $1`, customID))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("doctor %s: %w", customID, apperr.ErrNotFound)
	}
	return c, err
}
