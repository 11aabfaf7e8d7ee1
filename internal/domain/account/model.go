package account

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrivaa/nrivaa/internal/domain/profile"
	"github.com/nrivaa/nrivaa/internal/platform/validate"
)

// Unique constraints on the users table, as named by the migrations.
const (
	CustomIDConstraint = "users_custom_id_key"
	PhoneConstraint    = "users_phone_key"
	SubjectConstraint  = "users_auth_subject_key"
)

type User struct {
	ID          uuid.UUID `json:"id"`
	AuthSubject string    `json:"-"`
	Role        string    `json:"role"`
	CustomID    string    `json:"custom_id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone"`
	Onboarded   bool      `json:"onboarded"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeletedAccount is the archive row kept after a user deletes their account.
// Its custom ID stays reserved forever.
type DeletedAccount struct {
	ID             uuid.UUID `json:"id"`
	OriginalUserID uuid.UUID `json:"original_user_id"`
	AuthSubject    string    `json:"-"`
	Role           string    `json:"role"`
	CustomID       string    `json:"custom_id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone"`
	Reason         string    `json:"reason,omitempty"`
	DeletedAt      time.Time `json:"deleted_at"`
}

type Contact struct {
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone" validate:"required,phone"`
}

func (c Contact) normalized() Contact {
	return Contact{
		FullName: strings.Join(strings.Fields(c.FullName), " "),
		Email:    strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:    validate.Phone(c.Phone),
	}
}

type PatientOnboarding struct {
	Contact
	profile.PatientInput
}

type DoctorOnboarding struct {
	Contact
	profile.DoctorInput
}

type DeleteRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
