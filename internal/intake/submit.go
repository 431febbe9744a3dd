package intake

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/usmanhx/labinsight/internal/config"
	"github.com/usmanhx/labinsight/internal/storage"
	"github.com/usmanhx/labinsight/internal/store"
	"github.com/usmanhx/labinsight/pkg/models"
)

// Dispatcher hands accepted jobs to the pipeline.
type Dispatcher interface {
	Enqueue(jobID string) error
}

// Service validates and accepts submissions.
type Service struct {
	store      store.Store
	layout     *storage.Layout
	dispatcher Dispatcher
	recaptcha  *RecaptchaVerifier
	uploadCfg  config.UploadConfig
	retention  time.Duration
}

func NewService(st store.Store, layout *storage.Layout, d Dispatcher, recaptcha *RecaptchaVerifier, uploadCfg config.UploadConfig, retention time.Duration) *Service {
	return &Service{
		store:      st,
		layout:     layout,
		dispatcher: d,
		recaptcha:  recaptcha,
		uploadCfg:  uploadCfg,
		retention:  retention,
	}
}

// Submission is one incoming report upload.
type Submission struct {
	Filename     string
	MIMEType     string
	Content      []byte
	Age          *int
	Gender       *string
	Language     string
	CaptchaToken string
	ClientIP     string
	Source       string
}

// Submit validates the upload, persists the file and job row, and dispatches
// the job. On any failure after the file is written, the file is removed so
// rejected submissions leave nothing behind.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.Job, error) {
	if sub.Language == "" {
		sub.Language = "en"
	}
	if err := ValidateLanguage(sub.Language); err != nil {
		return nil, err
	}
	if sub.Age != nil {
		if err := ValidateAge(*sub.Age); err != nil {
			return nil, err
		}
	}
	if err := s.recaptcha.Verify(ctx, sub.CaptchaToken); err != nil {
		return nil, err
	}
	if err := ValidateUpload(sub.Filename, sub.MIMEType, sub.Content, s.uploadCfg); err != nil {
		return nil, err
	}

	source := sub.Source
	if source == "" {
		source = models.JobSourceWeb
	}

	jobID := uuid.NewString()
	filePath, err := s.layout.SaveUpload(jobID, sub.MIMEType, bytes.NewReader(sub.Content))
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:             uuid.New(),
		JobID:          jobID,
		Status:         models.JobStatusPending,
		FilePath:       filePath,
		FileType:       sub.MIMEType,
		Age:            sub.Age,
		Gender:         sub.Gender,
		SourceLanguage: "en",
		OutputLanguage: sub.Language,
		Source:         source,
		ExpiresAt:      now.Add(s.retention),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if sub.ClientIP != "" {
		job.ClientIP = &sub.ClientIP
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		s.discard(job)
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := s.dispatcher.Enqueue(jobID); err != nil {
		s.discard(job)
		if derr := s.store.DeleteJob(ctx, job.ID); derr != nil {
			slog.Error("delete undispatched job", "job_id", jobID, "error", derr)
		}
		return nil, err
	}

	slog.Info("report submitted", "job_id", jobID, "file", sub.Filename,
		"type", sub.MIMEType, "size", len(sub.Content), "language", sub.Language)
	return job, nil
}

func (s *Service) discard(job *models.Job) {
	if err := s.layout.Remove(job.JobID, job.FilePath); err != nil {
		slog.Error("remove rejected upload", "job_id", job.JobID, "error", err)
	}
}
