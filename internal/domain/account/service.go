package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/domain/profile"
	"github.com/nrivaa/nrivaa/internal/domain/timeline"
	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/auth"
	"github.com/nrivaa/nrivaa/internal/platform/db"
	"github.com/nrivaa/nrivaa/internal/platform/validate"
)

type Service struct {
	users    Repository
	profiles profile.Repository
	timeline timeline.Recorder
	ids      *Assigner
	tx       db.TxRunner
	logger   zerolog.Logger
}

func NewService(users Repository, profiles profile.Repository, events timeline.Recorder,
	ids *Assigner, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		profiles: profiles,
		timeline: events,
		ids:      ids,
		tx:       tx,
		logger:   logger,
	}
}

// OnboardPatient creates the patient account for the authenticated subject.
func (s *Service) OnboardPatient(ctx context.Context, p auth.Principal, in PatientOnboarding) (*User, error) {
	contact, err := s.checkOnboarding(ctx, p, auth.RolePatient, in.Contact)
	if err != nil {
		return nil, err
	}
	prof, err := in.PatientInput.Build(uuid.Nil)
	if err != nil {
		return nil, err
	}

	return s.onboard(ctx, p, auth.RolePatient, contact, func(ctx context.Context, u *User) error {
		prof.UserID = u.ID
		if err := s.profiles.CreatePatient(ctx, prof); err != nil {
			return err
		}
		return s.timeline.Record(ctx, &timeline.Event{
			PatientID:   u.ID,
			Kind:        timeline.KindOnboarding,
			Title:       "Joined Nrivaa",
			Description: fmt.Sprintf("Your patient ID is %s", u.CustomID),
		})
	})
}

// OnboardDoctor creates the doctor account for the authenticated subject.
func (s *Service) OnboardDoctor(ctx context.Context, p auth.Principal, in DoctorOnboarding) (*User, error) {
	contact, err := s.checkOnboarding(ctx, p, auth.RoleDoctor, in.Contact)
	if err != nil {
		return nil, err
	}
	prof, err := in.DoctorInput.Build(uuid.Nil)
	if err != nil {
		return nil, err
	}

	return s.onboard(ctx, p, auth.RoleDoctor, contact, func(ctx context.Context, u *User) error {
		prof.UserID = u.ID
		return s.profiles.CreateDoctor(ctx, prof)
	})
}

func (s *Service) checkOnboarding(ctx context.Context, p auth.Principal, role string, c Contact) (Contact, error) {
	if p.Role != "" && p.Role != role {
		return Contact{}, apperr.Forbidden(fmt.Sprintf("this account was registered as a %s", p.Role))
	}
	if c.FullName == "" {
		c.FullName = p.Name
	}
	if c.Email == "" {
		c.Email = p.Email
	}
	c = c.normalized()
	if err := validate.Struct(c); err != nil {
		return Contact{}, err
	}

	if _, err := s.users.GetBySubject(ctx, p.Subject); err == nil {
		return Contact{}, apperr.Conflict("account already onboarded")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return Contact{}, err
	}

	taken, err := s.users.PhoneInUse(ctx, c.Phone, uuid.Nil)
	if err != nil {
		return Contact{}, err
	}
	if taken {
		return Contact{}, apperr.Conflict("phone number already registered")
	}
	return c, nil
}

// onboard assigns the custom ID and then writes the user and whatever
// withProfile adds in a single transaction.
func (s *Service) onboard(ctx context.Context, p auth.Principal, role string, c Contact,
	withProfile func(ctx context.Context, u *User) error) (*User, error) {
	customID, err := s.ids.Next(ctx, role)
	if err != nil {
		return nil, err
	}

	u := &User{
		AuthSubject: p.Subject,
		Role:        role,
		CustomID:    customID,
		FullName:    c.FullName,
		Email:       c.Email,
		Phone:       c.Phone,
		Onboarded:   true,
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return withProfile(ctx, u)
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	s.logger.Info().
		Str("user_id", u.ID.String()).
		Str("custom_id", u.CustomID).
		Str("role", role).
		Msg("account onboarded")
	return u, nil
}

func (s *Service) mapWriteError(err error) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case CustomIDConstraint:
		s.logger.Warn().Msg("custom id taken at insert")
		return apperr.Busy("system is busy, please try again")
	case PhoneConstraint:
		return apperr.Conflict("phone number already registered")
	case SubjectConstraint:
		return apperr.Conflict("account already onboarded")
	case profile.LicenseConstraint:
		return apperr.Conflict("license number already registered")
	default:
		return err
	}
}

func (s *Service) Me(ctx context.Context, subject string) (*User, error) {
	u, err := s.users.GetBySubject(ctx, subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("onboarding required")
	}
	return u, err
}

func (s *Service) UpdateContact(ctx context.Context, userID uuid.UUID, in Contact) (*User, error) {
	in = in.normalized()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("account not found")
		}
		return nil, err
	}

	if in.Phone != u.Phone {
		taken, err := s.users.PhoneInUse(ctx, in.Phone, u.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("phone number already registered")
		}
	}

	u.FullName, u.Email, u.Phone = in.FullName, in.Email, in.Phone
	if err := s.users.UpdateContact(ctx, u); err != nil {
		return nil, s.mapWriteError(err)
	}
	return u, nil
}

// DeleteAccount archives the account, keeping its custom ID reserved, and
// deletes the user along with everything it owns.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID, req DeleteRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.users.Archive(ctx, &DeletedAccount{
			OriginalUserID: u.ID,
			AuthSubject:    u.AuthSubject,
			Role:           u.Role,
			CustomID:       u.CustomID,
			FullName:       u.FullName,
			Email:          u.Email,
			Phone:          u.Phone,
			Reason:         req.Reason,
		}); err != nil {
			return err
		}
		return s.users.Delete(ctx, u.ID)
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound("account not found")
	}
	if err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("account deleted")
	return nil
}

// LoadUser resolves the onboarded account behind p. found is false when the
// subject has not onboarded yet.
func (s *Service) LoadUser(ctx context.Context, p auth.Principal) (u auth.CurrentUser, found bool, err error) {
	user, err := s.users.GetBySubject(ctx, p.Subject)
	if errors.Is(err, apperr.ErrNotFound) {
		return auth.CurrentUser{}, false, nil
	}
	if err != nil {
		return auth.CurrentUser{}, false, err
	}
	return auth.CurrentUser{ID: user.ID, CustomID: user.CustomID, Role: user.Role, FullName: user.FullName}, true, nil
}
