package auth

import (
	"context"

	"github.com/google/uuid"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// Principal is the identity asserted by the identity provider's token.
type Principal struct {
	Subject   string
	Role      string
	Onboarded bool
	Email     string
	Name      string
}

// CurrentUser is the onboarded account behind a Principal, loaded from the
// users table once per request.
type CurrentUser struct {
	ID       uuid.UUID
	CustomID string
	Role     string
	FullName string
}

type principalKey struct{}
type currentUserKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Subject != ""
}

func WithCurrentUser(ctx context.Context, u CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserKey{}, u)
}

func CurrentUserFromContext(ctx context.Context) (CurrentUser, bool) {
	u, ok := ctx.Value(currentUserKey{}).(CurrentUser)
	return u, ok && u.ID != uuid.Nil
}
