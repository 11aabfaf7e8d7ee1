package timeline

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

const eventCols = `id, patient_id, kind, title, description, occurred_at, reference_id, created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.PatientID, &e.Kind, &e.Title, &e.Description,
		&e.OccurredAt, &e.ReferenceID, &e.CreatedAt)
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO timeline_events (id, patient_id, kind, title, description, occurred_at, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		e.ID, e.PatientID, e.Kind, e.Title, e.Description, e.OccurredAt, e.ReferenceID,
	).Scan(&e.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventCols+` FROM timeline_events WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("timeline event %s: %w", id, apperr.ErrNotFound)
	}
	return e, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, kind Kind, limit, offset int) ([]*Event, int, error) {
	where := `WHERE patient_id = $1 AND ($2 = '' OR kind = $2)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM timeline_events `+where, patientID, string(kind)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventCols+` FROM timeline_events `+where+`
		ORDER BY occurred_at DESC, created_at DESC LIMIT $3 OFFSET $4`,
		patientID, string(kind), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM timeline_events WHERE id = $1`, id)
	return err
}
