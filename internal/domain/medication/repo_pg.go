package medication

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

const medCols = `id, patient_id, name, dosage, frequency, start_date, end_date, notes, active,
	prescribed_by, created_at, updated_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.PatientID, &m.Name, &m.Dosage, &m.Frequency, &m.StartDate, &m.EndDate,
		&m.Notes, &m.Active, &m.PrescribedBy, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medications (id, patient_id, name, dosage, frequency, start_date, end_date,
			notes, active, prescribed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.Name, m.Dosage, m.Frequency, m.StartDate, m.EndDate,
		m.Notes, m.Active, m.PrescribedBy,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	m, err := scanMedication(r.conn(ctx).QueryRow(ctx, `SELECT `+medCols+` FROM medications WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("medication %s: %w", id, apperr.ErrNotFound)
	}
	return m, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, active *bool, limit, offset int) ([]*Medication, int, error) {
	where := `WHERE patient_id = $1`
	args := []interface{}{patientID}
	if active != nil {
		where += ` AND active = $2`
		args = append(args, *active)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medications `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM medications %s ORDER BY active DESC, start_date DESC LIMIT $%d OFFSET $%d`,
		medCols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medications SET name=$2, dosage=$3, frequency=$4, start_date=$5, end_date=$6,
			notes=$7, active=$8, prescribed_by=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.Name, m.Dosage, m.Frequency, m.StartDate, m.EndDate,
		m.Notes, m.Active, m.PrescribedBy,
	).Scan(&m.UpdatedAt)
	if db.IsNoRows(err) {
		return fmt.Errorf("medication %s: %w", m.ID, apperr.ErrNotFound)
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("medication %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
