package assistant

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nrivaa/nrivaa/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const msgCols = `id, user_id, role, content, created_at`

func collectMessages(rows pgx.Rows) ([]*Message, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Message, error) {
		var m Message
		err := row.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt)
		return &m, err
	})
}

func (r *repoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO chat_messages (id, user_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		m.ID, m.UserID, m.Role, m.Content,
	).Scan(&m.CreatedAt)
}

func (r *repoPG) Recent(ctx context.Context, userID uuid.UUID, n int) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+msgCols+` FROM (
			SELECT `+msgCols+`, seq FROM chat_messages
			WHERE user_id = $1 ORDER BY seq DESC LIMIT $2
		) recent ORDER BY seq`, userID, n)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (r *repoPG) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+msgCols+` FROM chat_messages
		WHERE user_id = $1 ORDER BY seq LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectMessages(rows)
	return items, total, err
}

func (r *repoPG) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM chat_messages WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
