package assistant

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	// Recent returns the user's last n messages, oldest first.
	Recent(ctx context.Context, userID uuid.UUID, n int) ([]*Message, error)
	// List pages through the whole history, oldest first.
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Message, int, error)
	Clear(ctx context.Context, userID uuid.UUID) (int64, error)
}
