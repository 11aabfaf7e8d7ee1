package profile

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrivaa/nrivaa/internal/platform/validate"
)

// Constraint names the pg repository reports on unique violations.
const LicenseConstraint = "doctor_profiles_license_number_key"

type PatientProfile struct {
	UserID                uuid.UUID `json:"user_id"`
	DateOfBirth           time.Time `json:"date_of_birth"`
	Gender                string    `json:"gender"`
	BloodGroup            string    `json:"blood_group,omitempty"`
	HeightCM              *float64  `json:"height_cm,omitempty"`
	WeightKG              *float64  `json:"weight_kg,omitempty"`
	Allergies             []string  `json:"allergies"`
	ChronicConditions     []string  `json:"chronic_conditions"`
	EmergencyContactName  string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string    `json:"emergency_contact_phone,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Age in whole years at now.
func (p *PatientProfile) Age(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

type DoctorProfile struct {
	UserID            uuid.UUID `json:"user_id"`
	Specialization    string    `json:"specialization"`
	LicenseNumber     string    `json:"license_number"`
	YearsOfExperience int       `json:"years_of_experience"`
	Hospital          string    `json:"hospital,omitempty"`
	ConsultationFee   *float64  `json:"consultation_fee,omitempty"`
	Bio               string    `json:"bio,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DoctorCard is what patients see when browsing doctors. It leaves out the
// license number and contact details.
type DoctorCard struct {
	CustomID          string   `json:"custom_id"`
	FullName          string   `json:"full_name"`
	Specialization    string   `json:"specialization"`
	YearsOfExperience int      `json:"years_of_experience"`
	Hospital          string   `json:"hospital,omitempty"`
	ConsultationFee   *float64 `json:"consultation_fee,omitempty"`
	Bio               string   `json:"bio,omitempty"`
}

type PatientInput struct {
	DateOfBirth           string   `json:"date_of_birth" validate:"required,date,notfuture"`
	Gender                string   `json:"gender" validate:"required,oneof=male female other prefer_not_to_say"`
	BloodGroup            string   `json:"blood_group" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	HeightCM              *float64 `json:"height_cm" validate:"omitempty,gte=30,lte=300"`
	WeightKG              *float64 `json:"weight_kg" validate:"omitempty,gte=1,lte=500"`
	Allergies             []string `json:"allergies" validate:"max=50,dive,max=100"`
	ChronicConditions     []string `json:"chronic_conditions" validate:"max=50,dive,max=100"`
	EmergencyContactName  string   `json:"emergency_contact_name" validate:"max=120"`
	EmergencyContactPhone string   `json:"emergency_contact_phone" validate:"omitempty,phone"`
}

// Build validates the input and returns the profile it describes.
func (in PatientInput) Build(userID uuid.UUID) (*PatientProfile, error) {
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	in.BloodGroup = strings.ToUpper(strings.TrimSpace(in.BloodGroup))
	in.EmergencyContactPhone = validate.Phone(in.EmergencyContactPhone)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	return &PatientProfile{
		UserID:                userID,
		DateOfBirth:           validate.Date(in.DateOfBirth),
		Gender:                in.Gender,
		BloodGroup:            in.BloodGroup,
		HeightCM:              in.HeightCM,
		WeightKG:              in.WeightKG,
		Allergies:             cleanList(in.Allergies),
		ChronicConditions:     cleanList(in.ChronicConditions),
		EmergencyContactName:  strings.TrimSpace(in.EmergencyContactName),
		EmergencyContactPhone: in.EmergencyContactPhone,
	}, nil
}

type DoctorInput struct {
	Specialization    string   `json:"specialization" validate:"required,max=100"`
	LicenseNumber     string   `json:"license_number" validate:"required,min=4,max=40"`
	YearsOfExperience int      `json:"years_of_experience" validate:"gte=0,lte=70"`
	Hospital          string   `json:"hospital" validate:"max=200"`
	ConsultationFee   *float64 `json:"consultation_fee" validate:"omitempty,gte=0"`
	Bio               string   `json:"bio" validate:"max=2000"`
}

func (in DoctorInput) Build(userID uuid.UUID) (*DoctorProfile, error) {
	in.Specialization = strings.TrimSpace(in.Specialization)
	in.LicenseNumber = strings.ToUpper(strings.TrimSpace(in.LicenseNumber))
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	return &DoctorProfile{
		UserID:            userID,
		Specialization:    in.Specialization,
		LicenseNumber:     in.LicenseNumber,
		YearsOfExperience: in.YearsOfExperience,
		Hospital:          strings.TrimSpace(in.Hospital),
		ConsultationFee:   in.ConsultationFee,
		Bio:               strings.TrimSpace(in.Bio),
	}, nil
}

// cleanList trims entries, drops blanks and case-insensitive duplicates.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
