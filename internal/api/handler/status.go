package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/usmanhx/labinsight/internal/api/response"
	"github.com/usmanhx/labinsight/internal/store"
	"github.com/usmanhx/labinsight/pkg/models"
)

// JobReader is the read-only job lookup the polling endpoints need.
type JobReader interface {
	GetJobByJobID(ctx context.Context, jobID string) (*models.Job, error)
}

// Unset fields serialize as explicit nulls so polling clients can rely on
// every key being present.
type statusResponse struct {
	JobID          string     `json:"job_id"`
	Status         string     `json:"status"`
	ResultMarkdown *string    `json:"result_markdown"`
	ResultPDFURL   *string    `json:"result_pdf_url"`
	ErrorMessage   *string    `json:"error_message"`
	CreatedAt      *time.Time `json:"created_at"`
	Language       *string    `json:"language"`
}

// NewStatusHandler returns the handler for GET /v1/status/{jobID}. Jobs past
// their retention window are reported as not found even before the sweeper
// removes them, so clients see consistent behavior either way.
func NewStatusHandler(st JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		job, err := st.GetJobByJobID(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "Report not found.")
				return
			}
			slog.Error("status lookup failed", "job_id", jobID, "error", err)
			response.Error(w, http.StatusInternalServerError, "Could not fetch report status.")
			return
		}
		if time.Now().After(job.ExpiresAt) {
			response.Error(w, http.StatusNotFound, "Report not found.")
			return
		}

		resp := statusResponse{
			JobID:          job.JobID,
			Status:         job.Status,
			ResultMarkdown: job.ResultMarkdown,
			ErrorMessage:   job.ErrorMessage,
			Language:       job.ResultLanguage,
		}
		if !job.CreatedAt.IsZero() {
			resp.CreatedAt = &job.CreatedAt
		}
		if job.Status == models.JobStatusCompleted && job.ResultPDFPath != nil {
			if _, err := os.Stat(*job.ResultPDFPath); err == nil {
				url := "/v1/download/" + job.JobID
				resp.ResultPDFURL = &url
			}
		}

		response.OK(w, resp)
	}
}
