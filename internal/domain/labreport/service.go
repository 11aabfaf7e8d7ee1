package labreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/domain/profile"
	"github.com/nrivaa/nrivaa/internal/domain/timeline"
	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/blobstore"
)

const blobCleanupTimeout = 10 * time.Second

// PatientReader supplies the profile used to personalise analysis.
type PatientReader interface {
	GetPatient(ctx context.Context, userID uuid.UUID) (*profile.PatientProfile, error)
}

type Service struct {
	reports  Repository
	blobs    blobstore.BlobStore
	analyzer *Analyzer
	patients PatientReader
	timeline timeline.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(reports Repository, blobs blobstore.BlobStore, analyzer *Analyzer,
	patients PatientReader, events timeline.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		reports:  reports,
		blobs:    blobs,
		analyzer: analyzer,
		patients: patients,
		timeline: events,
		logger:   logger,
		now:      time.Now,
	}
}

// Upload stores the PDF in the blob store and then the report record. If the
// record cannot be written the blob is removed again.
func (s *Service) Upload(ctx context.Context, patientID uuid.UUID, in UploadInput, file File, content io.Reader) (*Report, error) {
	rep, err := in.Build(patientID)
	if err != nil {
		return nil, err
	}
	if file.Size > blobstore.MaxFileSize {
		return nil, apperr.Validation("file exceeds the 10 MB limit")
	}

	obj, err := s.blobs.Upload(ctx, blobstore.Object{
		FileName:    file.Name,
		ContentType: file.ContentType,
		OwnerID:     patientID.String(),
	}, content)
	if err != nil {
		return nil, blobError(err)
	}

	rep.FileURL = obj.URL
	rep.FileName = obj.FileName
	rep.FileKey = obj.Key
	rep.FileSize = obj.Size
	if err := s.reports.Create(ctx, rep); err != nil {
		s.removeBlob(ctx, obj.Key)
		return nil, err
	}

	ref := rep.ID
	s.record(ctx, &timeline.Event{
		PatientID:   patientID,
		Kind:        timeline.KindLabReport,
		Title:       fmt.Sprintf("Uploaded %s", rep.Title),
		OccurredAt:  rep.TestDate,
		ReferenceID: &ref,
	})
	return rep, nil
}

func blobError(err error) error {
	switch {
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return apperr.Validation("file exceeds the 10 MB limit")
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return apperr.Validation("only PDF files are accepted")
	case errors.Is(err, blobstore.ErrMissingFileName):
		return apperr.Validation("file name is required")
	default:
		return apperr.Upstream("could not store the file, please try again", err)
	}
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	return s.reports.ListByPatient(ctx, patientID, limit, offset)
}

// Get returns the report if it belongs to patientID.
func (s *Service) Get(ctx context.Context, patientID, id uuid.UUID) (*Report, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && rep.PatientID != patientID) {
		return nil, apperr.NotFound("lab report not found")
	}
	return rep, err
}

func (s *Service) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	rep, err := s.Get(ctx, patientID, id)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, rep.ID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("lab report not found")
		}
		return err
	}
	s.removeBlob(ctx, rep.FileKey)
	return nil
}

// Analyze explains the report's values, preferring the model and falling
// back to the rule table. Re-analysing replaces the previous result.
func (s *Service) Analyze(ctx context.Context, patientID, id uuid.UUID) (*Report, error) {
	rep, err := s.Get(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	if len(rep.Values) == 0 {
		return nil, apperr.Validation("add test values to the report before analysing it")
	}

	patient, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		s.logger.Debug().Err(err).Str("patient_id", patientID.String()).Msg("analysing without profile")
	}

	result := s.analyzer.Analyze(ctx, rep, patient)
	analyzedAt := s.now().UTC()
	rep.Analysis = result.Text
	rep.AnalysisSource = result.Source
	rep.Findings = result.Findings
	rep.AnalyzedAt = &analyzedAt
	if err := s.reports.SaveAnalysis(ctx, rep); err != nil {
		return nil, err
	}

	ref := rep.ID
	s.record(ctx, &timeline.Event{
		PatientID:   patientID,
		Kind:        timeline.KindAnalysis,
		Title:       fmt.Sprintf("Analysed %s", rep.Title),
		Description: abnormalSummary(result.Findings),
		OccurredAt:  analyzedAt,
		ReferenceID: &ref,
	})
	return rep, nil
}

func abnormalSummary(findings []Finding) string {
	n := 0
	for _, f := range findings {
		if f.Flag == FlagLow || f.Flag == FlagHigh {
			n++
		}
	}
	switch n {
	case 0:
		return "No results outside reference ranges"
	case 1:
		return "1 result outside its reference range"
	default:
		return fmt.Sprintf("%d results outside reference ranges", n)
	}
}

func (s *Service) record(ctx context.Context, e *timeline.Event) {
	if err := s.timeline.Record(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("kind", string(e.Kind)).Msg("failed to record timeline event")
	}
}

// removeBlob is detached from request cancellation so cleanup still runs
// after the client goes away.
func (s *Service) removeBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCleanupTimeout)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to delete blob")
	}
}
