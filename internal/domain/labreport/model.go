package labreport

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/validate"
)

type Source string

const (
	SourceAI    Source = "ai"
	SourceRules Source = "rules"
)

type Flag string

const (
	FlagLow     Flag = "low"
	FlagNormal  Flag = "normal"
	FlagHigh    Flag = "high"
	FlagUnknown Flag = "unknown"
)

// Value is one measured test result. The reference range is optional; the
// rule table supplies a default for well-known tests.
type Value struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Value   float64  `json:"value"`
	Unit    string   `json:"unit,omitempty" validate:"max=30"`
	RefLow  *float64 `json:"ref_low,omitempty"`
	RefHigh *float64 `json:"ref_high,omitempty"`
}

type Finding struct {
	Name    string   `json:"name"`
	Value   float64  `json:"value"`
	Unit    string   `json:"unit,omitempty"`
	Flag    Flag     `json:"flag"`
	RefLow  *float64 `json:"ref_low,omitempty"`
	RefHigh *float64 `json:"ref_high,omitempty"`
	Advice  string   `json:"advice,omitempty"`
}

type Report struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	Title          string     `json:"title"`
	TestDate       time.Time  `json:"test_date"`
	FileURL        string     `json:"file_url"`
	FileName       string     `json:"file_name"`
	FileKey        string     `json:"-"`
	FileSize       int64      `json:"file_size"`
	Values         []Value    `json:"values"`
	Analysis       string     `json:"analysis,omitempty"`
	AnalysisSource Source     `json:"analysis_source,omitempty"`
	Findings       []Finding  `json:"findings,omitempty"`
	AnalyzedAt     *time.Time `json:"analyzed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// UploadInput is the form part of an upload. Values arrives as a JSON array
// in the "values" form field.
type UploadInput struct {
	Title    string  `json:"title" validate:"required,max=200"`
	TestDate string  `json:"test_date" validate:"required,date,notfuture"`
	Values   []Value `json:"values" validate:"max=100,dive"`
}

func (in UploadInput) Build(patientID uuid.UUID) (*Report, error) {
	in.Title = strings.TrimSpace(in.Title)
	for i := range in.Values {
		in.Values[i].Name = strings.TrimSpace(in.Values[i].Name)
		in.Values[i].Unit = strings.TrimSpace(in.Values[i].Unit)
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	for _, v := range in.Values {
		if v.RefLow != nil && v.RefHigh != nil && *v.RefLow > *v.RefHigh {
			return nil, apperr.Validation(v.Name + ": ref_low cannot exceed ref_high")
		}
	}
	values := in.Values
	if values == nil {
		values = []Value{}
	}
	return &Report{
		PatientID: patientID,
		Title:     in.Title,
		TestDate:  validate.Date(in.TestDate),
		Values:    values,
	}, nil
}

// File is the uploaded document as received from the multipart form.
type File struct {
	Name        string
	ContentType string
	Size        int64
}
