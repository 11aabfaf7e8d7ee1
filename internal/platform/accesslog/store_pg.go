package accesslog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nrivaa/nrivaa/internal/platform/db"
)

type storePG struct {
	pool *pgxpool.Pool
}

func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO access_log (id, subject, role, custom_id, resource, resource_id, action,
			method, path, status_code, ip_address, user_agent, request_id, accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.Subject, e.Role, e.CustomID, e.Resource, e.ResourceID, e.Action,
		e.Method, e.Path, e.StatusCode, e.IPAddress, e.UserAgent, e.RequestID, e.AccessedAt)
	return err
}
