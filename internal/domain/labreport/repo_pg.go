package labreport

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

const reportCols = `id, patient_id, title, test_date, file_url, file_name, file_key, file_size,
	lab_values, analysis, analysis_source, findings, analyzed_at, created_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	var source *string
	err := row.Scan(&rep.ID, &rep.PatientID, &rep.Title, &rep.TestDate, &rep.FileURL, &rep.FileName,
		&rep.FileKey, &rep.FileSize, &rep.Values, &rep.Analysis, &source, &rep.Findings,
		&rep.AnalyzedAt, &rep.CreatedAt)
	if source != nil {
		rep.AnalysisSource = Source(*source)
	}
	return &rep, err
}

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_reports (id, patient_id, title, test_date, file_url, file_name, file_key,
			file_size, lab_values)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		rep.ID, rep.PatientID, rep.Title, rep.TestDate, rep.FileURL, rep.FileName, rep.FileKey,
		rep.FileSize, rep.Values,
	).Scan(&rep.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM lab_reports WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("lab report %s: %w", id, apperr.ErrNotFound)
	}
	return rep, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_reports WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+reportCols+` FROM lab_reports
		WHERE patient_id = $1 ORDER BY test_date DESC, created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rep)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SaveAnalysis(ctx context.Context, rep *Report) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_reports SET analysis = $2, analysis_source = $3, findings = $4, analyzed_at = $5
		WHERE id = $1`,
		rep.ID, rep.Analysis, string(rep.AnalysisSource), rep.Findings, rep.AnalyzedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lab report %s: %w", rep.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lab report %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
