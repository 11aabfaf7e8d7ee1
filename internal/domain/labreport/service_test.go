package labreport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrivaa/nrivaa/internal/domain/profile"
	"github.com/nrivaa/nrivaa/internal/domain/timeline"
	"github.com/nrivaa/nrivaa/internal/platform/apperr"
	"github.com/nrivaa/nrivaa/internal/platform/blobstore"
)

type mockRepo struct {
	store     map[uuid.UUID]*Report
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Report)}
}

func (m *mockRepo) Create(_ context.Context, r *Report) error {
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.store[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Report, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("lab report %s: %w", id, apperr.ErrNotFound)
	}
	return r, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	var result []*Report
	for _, r := range m.store {
		if r.PatientID == patientID {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) SaveAnalysis(_ context.Context, r *Report) error {
	if _, ok := m.store[r.ID]; !ok {
		return fmt.Errorf("lab report %s: %w", r.ID, apperr.ErrNotFound)
	}
	m.store[r.ID] = r
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return fmt.Errorf("lab report %s: %w", id, apperr.ErrNotFound)
	}
	delete(m.store, id)
	return nil
}

type mockPatients struct {
	profiles map[uuid.UUID]*profile.PatientProfile
}

func (m *mockPatients) GetPatient(_ context.Context, userID uuid.UUID) (*profile.PatientProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

type mockRecorder struct {
	events []*timeline.Event
}

func (m *mockRecorder) Record(_ context.Context, e *timeline.Event) error {
	m.events = append(m.events, e)
	return nil
}

type testEnv struct {
	svc     *Service
	repo    *mockRepo
	blobs   *blobstore.InMemoryBlobStore
	model   *fakeModel
	events  *mockRecorder
	patient *mockPatients
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:    newMockRepo(),
		blobs:   blobstore.NewInMemoryBlobStore("http://localhost:8000"),
		model:   &fakeModel{reply: "Looks mostly fine."},
		events:  &mockRecorder{},
		patient: &mockPatients{profiles: make(map[uuid.UUID]*profile.PatientProfile)},
	}
	analyzer := NewAnalyzer(env.model, DefaultRules(), zerolog.Nop())
	env.svc = NewService(env.repo, env.blobs, analyzer, env.patient, env.events, zerolog.Nop())
	return env
}

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF")

func pdfFile() File {
	return File{Name: "cbc.pdf", ContentType: "application/pdf", Size: int64(len(samplePDF))}
}

func validUpload() UploadInput {
	return UploadInput{
		Title:    " CBC ",
		TestDate: "2026-09-20",
		Values:   []Value{{Name: "Hemoglobin", Value: 10.5, Unit: "g/dL"}},
	}
}

func TestUploadInput_Build_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadInput)
	}{
		{"missing title", func(in *UploadInput) { in.Title = " " }},
		{"missing date", func(in *UploadInput) { in.TestDate = "" }},
		{"future date", func(in *UploadInput) { in.TestDate = time.Now().AddDate(0, 1, 0).Format("2006-01-02") }},
		{"unnamed value", func(in *UploadInput) { in.Values = []Value{{Value: 1}} }},
		{"inverted range", func(in *UploadInput) { in.Values = []Value{{Name: "x", RefLow: ptr(5), RefHigh: ptr(1)}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validUpload()
			tt.mutate(&in)
			if _, err := in.Build(uuid.New()); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_Upload(t *testing.T) {
	env := newTestEnv()
	patientID := uuid.New()

	rep, err := env.svc.Upload(context.Background(), patientID, validUpload(), pdfFile(), bytes.NewReader(samplePDF))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Title != "CBC" || rep.FileName != "cbc.pdf" || rep.FileSize != int64(len(samplePDF)) {
		t.Errorf("unexpected report %+v", rep)
	}
	if !strings.HasPrefix(rep.FileURL, "http://localhost:8000/blobs/lab-reports/"+patientID.String()+"/") {
		t.Errorf("unexpected file url %s", rep.FileURL)
	}
	if env.blobs.Len() != 1 {
		t.Errorf("expected 1 blob, got %d", env.blobs.Len())
	}
	if len(env.events.events) != 1 || env.events.events[0].Kind != timeline.KindLabReport {
		t.Errorf("expected lab_report timeline event, got %+v", env.events.events)
	}
}

func TestService_Upload_RejectsFiles(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		content []byte
		message string
	}{
		{"not a pdf", File{Name: "scan.png", ContentType: "image/png"}, []byte("\x89PNG"), "only PDF files are accepted"},
		{"pdf extension without pdf bytes", File{Name: "fake.pdf"}, []byte("hello"), "only PDF files are accepted"},
		{"declared too large", File{Name: "big.pdf", ContentType: "application/pdf", Size: blobstore.MaxFileSize + 1}, samplePDF, "file exceeds the 10 MB limit"},
		{"no name", File{ContentType: "application/pdf"}, samplePDF, "file name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			_, err := env.svc.Upload(context.Background(), uuid.New(), validUpload(), tt.file, bytes.NewReader(tt.content))
			if !errors.Is(err, apperr.ErrValidation) || apperr.Message(err) != tt.message {
				t.Fatalf("expected %q, got %v", tt.message, err)
			}
			if env.blobs.Len() != 0 || len(env.repo.store) != 0 {
				t.Error("nothing should be stored")
			}
		})
	}
}

func TestService_Upload_RecordFailureRemovesBlob(t *testing.T) {
	env := newTestEnv()
	env.repo.createErr = errors.New("insert failed")

	if _, err := env.svc.Upload(context.Background(), uuid.New(), validUpload(), pdfFile(), bytes.NewReader(samplePDF)); err == nil {
		t.Fatal("expected error")
	}
	if env.blobs.Len() != 0 {
		t.Error("orphaned blob should be deleted")
	}
}

// cancellingBlobs cancels the request context once the upload has been
// stored and refuses deletes on a cancelled context.
type cancellingBlobs struct {
	*blobstore.InMemoryBlobStore
	cancel context.CancelFunc
}

func (b *cancellingBlobs) Upload(ctx context.Context, meta blobstore.Object, content io.Reader) (*blobstore.Object, error) {
	obj, err := b.InMemoryBlobStore.Upload(ctx, meta, content)
	b.cancel()
	return obj, err
}

func (b *cancellingBlobs) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.InMemoryBlobStore.Delete(ctx, key)
}

func TestService_Upload_CancelledRequestStillRemovesBlob(t *testing.T) {
	env := newTestEnv()
	env.repo.createErr = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	blobs := &cancellingBlobs{InMemoryBlobStore: env.blobs, cancel: cancel}
	svc := NewService(env.repo, blobs, NewAnalyzer(env.model, DefaultRules(), zerolog.Nop()), env.patient, env.events, zerolog.Nop())

	if _, err := svc.Upload(ctx, uuid.New(), validUpload(), pdfFile(), bytes.NewReader(samplePDF)); err == nil {
		t.Fatal("expected error")
	}
	if env.blobs.Len() != 0 {
		t.Error("blob should be deleted even though the request was cancelled")
	}
}

func TestService_GetAndDelete_Ownership(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	owner := uuid.New()
	rep, _ := env.svc.Upload(ctx, owner, validUpload(), pdfFile(), bytes.NewReader(samplePDF))

	if _, err := env.svc.Get(ctx, uuid.New(), rep.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for other patient, got %v", err)
	}
	if err := env.svc.Delete(ctx, uuid.New(), rep.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for other patient, got %v", err)
	}

	if err := env.svc.Delete(ctx, owner, rep.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.repo.store) != 0 || env.blobs.Len() != 0 {
		t.Error("expected record and blob to be removed")
	}
}

func TestService_Analyze_Model(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	patientID := uuid.New()
	env.patient.profiles[patientID] = &profile.PatientProfile{
		UserID:      patientID,
		DateOfBirth: time.Date(1985, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:      "male",
	}
	rep, _ := env.svc.Upload(ctx, patientID, validUpload(), pdfFile(), bytes.NewReader(samplePDF))

	got, err := env.svc.Analyze(ctx, patientID, rep.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AnalysisSource != SourceAI || got.Analysis != "Looks mostly fine." || got.AnalyzedAt == nil {
		t.Errorf("unexpected analysis %+v", got)
	}
	if !strings.Contains(env.model.turns[0].Text, "male") {
		t.Error("expected profile in prompt")
	}
	last := env.events.events[len(env.events.events)-1]
	if last.Kind != timeline.KindAnalysis || last.Description != "1 result outside its reference range" {
		t.Errorf("unexpected analysis event %+v", last)
	}
}

func TestService_Analyze_FallbackWithoutProfile(t *testing.T) {
	env := newTestEnv()
	env.model.err = errors.New("llm: status 500")
	ctx := context.Background()
	patientID := uuid.New()
	rep, _ := env.svc.Upload(ctx, patientID, validUpload(), pdfFile(), bytes.NewReader(samplePDF))

	got, err := env.svc.Analyze(ctx, patientID, rep.ID)
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if got.AnalysisSource != SourceRules {
		t.Errorf("expected rules source, got %s", got.AnalysisSource)
	}
	if len(got.Findings) != 1 || got.Findings[0].Flag != FlagLow {
		t.Errorf("unexpected findings %+v", got.Findings)
	}
	if env.repo.store[rep.ID].Analysis == "" {
		t.Error("analysis should be persisted")
	}
}

func TestService_Analyze_NoValues(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	patientID := uuid.New()
	in := validUpload()
	in.Values = nil
	rep, _ := env.svc.Upload(ctx, patientID, in, pdfFile(), bytes.NewReader(samplePDF))

	if _, err := env.svc.Analyze(ctx, patientID, rep.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
