package account

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/auth"
)

const (
	PatientPrefix = "#Nrivaa"
	DoctorPrefix  = "#DrNrivaa"

	DefaultMaxAttempts = 5
)

// IDStore is the data the assigner scans. Archived IDs come from deleted
// accounts and are never handed out again.
type IDStore interface {
	ActiveCustomIDs(ctx context.Context, prefix string) ([]string, error)
	ArchivedCustomIDs(ctx context.Context, prefix string) ([]string, error)
	CustomIDInUse(ctx context.Context, customID string) (bool, error)
}

// Assigner issues role-prefixed sequential custom IDs. It takes no lock:
// each attempt rescans the issued IDs and checks the candidate against
// active users, retrying on collision. The unique index on users.custom_id
// catches whatever race the retry loop misses.
type Assigner struct {
	store       IDStore
	maxAttempts int
	logger      zerolog.Logger
}

func NewAssigner(store IDStore, maxAttempts int, logger zerolog.Logger) *Assigner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Assigner{store: store, maxAttempts: maxAttempts, logger: logger}
}

func PrefixFor(role string) (string, error) {
	switch role {
	case auth.RolePatient:
		return PatientPrefix, nil
	case auth.RoleDoctor:
		return DoctorPrefix, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("unknown role %q", role))
	}
}

// Next returns an ID for role that no active or archived account has held.
func (a *Assigner) Next(ctx context.Context, role string) (string, error) {
	prefix, err := PrefixFor(role)
	if err != nil {
		return "", err
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		active, err := a.store.ActiveCustomIDs(ctx, prefix)
		if err != nil {
			return "", fmt.Errorf("scanning active custom ids: %w", err)
		}
		archived, err := a.store.ArchivedCustomIDs(ctx, prefix)
		if err != nil {
			return "", fmt.Errorf("scanning archived custom ids: %w", err)
		}

		candidate := NextInSequence(prefix, active, archived)
		taken, err := a.store.CustomIDInUse(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking custom id %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		a.logger.Debug().
			Str("candidate", candidate).
			Int("attempt", attempt).
			Msg("custom id collision, retrying")
	}

	a.logger.Warn().
		Str("role", role).
		Int("attempts", a.maxAttempts).
		Msg("custom id assignment exhausted retries")
	return "", apperr.Busy("system is busy, please try again")
}

// NextInSequence returns prefix followed by one more than the highest numeric
// suffix among issued, zero-padded to three digits. IDs whose suffix is not
// all digits are ignored.
func NextInSequence(prefix string, issued ...[]string) string {
	max := 0
	for _, ids := range issued {
		for _, id := range ids {
			if n, ok := parseSuffix(prefix, id); ok && n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("%s%03d", prefix, max+1)
}

func parseSuffix(prefix, id string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	digits := id[len(prefix):]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
