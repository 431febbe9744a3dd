package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/usmanhx/labinsight/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
// Create/update paths are used only by intake and the pipeline; the API reads.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJobByJobID(ctx context.Context, jobID string) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error
	// SaveJobArtifacts persists intermediate pipeline output without touching
	// the status column, so a crash mid-pipeline leaves the job processing
	// with whatever partial artifacts exist.
	SaveJobArtifacts(ctx context.Context, id uuid.UUID, opts ...JobUpdateOption) error

	ListExpiredJobs(ctx context.Context, cutoff time.Time) ([]*models.Job, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
}

// UpdateParams is the set of optional column updates an update option can
// carry. Nil fields are left untouched.
type UpdateParams struct {
	ErrorMessage   *string
	ExtractedText  *string
	ResultJSON     *string
	ResultMarkdown *string
	ResultPDFPath  *string
	ResultLanguage *string
}

type JobUpdateOption func(*UpdateParams)

// CollectUpdate folds options into an UpdateParams. Store implementations and
// test fakes both use this.
func CollectUpdate(opts ...JobUpdateOption) UpdateParams {
	var p UpdateParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *UpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithExtractedText(text string) JobUpdateOption {
	return func(p *UpdateParams) {
		p.ExtractedText = &text
	}
}

func WithResultJSON(raw string) JobUpdateOption {
	return func(p *UpdateParams) {
		p.ResultJSON = &raw
	}
}

func WithResultMarkdown(md string) JobUpdateOption {
	return func(p *UpdateParams) {
		p.ResultMarkdown = &md
	}
}

func WithResultPDFPath(path string) JobUpdateOption {
	return func(p *UpdateParams) {
		p.ResultPDFPath = &path
	}
}

func WithResultLanguage(lang string) JobUpdateOption {
	return func(p *UpdateParams) {
		p.ResultLanguage = &lang
	}
}
