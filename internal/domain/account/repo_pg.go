package account

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

const userCols = `id, auth_subject, role, custom_id, full_name, email, phone, onboarded, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.AuthSubject, &u.Role, &u.CustomID, &u.FullName, &u.Email,
		&u.Phone, &u.Onboarded, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *repoPG) customIDs(ctx context.Context, query, prefix string) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, query, prefix)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *repoPG) ActiveCustomIDs(ctx context.Context, prefix string) ([]string, error) {
	return r.customIDs(ctx, `SELECT custom_id FROM users WHERE starts_with(custom_id, $1)`, prefix)
}

func (r *repoPG) ArchivedCustomIDs(ctx context.Context, prefix string) ([]string, error) {
	return r.customIDs(ctx, `SELECT custom_id FROM deleted_accounts WHERE starts_with(custom_id, $1)`, prefix)
}

func (r *repoPG) CustomIDInUse(ctx context.Context, customID string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE custom_id = $1)`, customID).Scan(&exists)
	return exists, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, auth_subject, role, custom_id, full_name, email, phone, onboarded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		u.ID, u.AuthSubject, u.Role, u.CustomID, u.FullName, u.Email, u.Phone, u.Onboarded,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u, err
}

func (r *repoPG) GetBySubject(ctx context.Context, subject string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE auth_subject = $1`, subject))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("user with subject %s: %w", subject, apperr.ErrNotFound)
	}
	return u, err
}

func (r *repoPG) PhoneInUse(ctx context.Context, phone string, except uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1 AND id <> $2)`, phone, except).Scan(&exists)
	return exists, err
}

func (r *repoPG) UpdateContact(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET full_name = $2, email = $3, phone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.FullName, u.Email, u.Phone,
	).Scan(&u.UpdatedAt)
	if db.IsNoRows(err) {
		return fmt.Errorf("user %s: %w", u.ID, apperr.ErrNotFound)
	}
	return err
}

// Delete removes the user. Profiles, medications, lab reports, timeline
// events and chat history go with it through ON DELETE CASCADE.
func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) Archive(ctx context.Context, d *DeletedAccount) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO deleted_accounts (id, original_user_id, auth_subject, role, custom_id,
			full_name, email, phone, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING deleted_at`,
		d.ID, d.OriginalUserID, d.AuthSubject, d.Role, d.CustomID,
		d.FullName, d.Email, d.Phone, d.Reason,
	).Scan(&d.DeletedAt)
}
