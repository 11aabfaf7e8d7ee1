package account

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	IDStore

	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetBySubject(ctx context.Context, subject string) (*User, error)
	PhoneInUse(ctx context.Context, phone string, except uuid.UUID) (bool, error)
	UpdateContact(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error

	Archive(ctx context.Context, d *DeletedAccount) error
}
