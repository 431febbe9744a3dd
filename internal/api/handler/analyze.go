// Package handler implements the HTTP endpoints.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	mw "github.com/usmanhx/labinsight/internal/api/middleware"
	"github.com/usmanhx/labinsight/internal/api/response"
	"github.com/usmanhx/labinsight/internal/intake"
	"github.com/usmanhx/labinsight/internal/pipeline"
	"github.com/usmanhx/labinsight/pkg/models"
)

// formOverhead pads the body limit so multipart framing and small form fields
// do not push a maximum-size file over the cap.
const formOverhead = 1 << 20

// Submitter accepts validated report submissions.
type Submitter interface {
	Submit(ctx context.Context, sub intake.Submission) (*models.Job, error)
}

// NewAnalyzeHandler returns the handler for POST /v1/analyze-report.
func NewAnalyzeHandler(svc Submitter, maxFileSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+formOverhead)
		if err := r.ParseMultipartForm(maxFileSize); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid multipart form or file too large.")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "file is required.")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Could not read uploaded file.")
			return
		}

		sub := intake.Submission{
			Filename:     header.Filename,
			MIMEType:     header.Header.Get("Content-Type"),
			Content:      content,
			Language:     r.FormValue("language"),
			CaptchaToken: r.FormValue("captcha_token"),
			ClientIP:     mw.ClientIP(r),
			Source:       models.JobSourceWeb,
		}
		if v := strings.TrimSpace(r.FormValue("age")); v != "" {
			age, err := strconv.Atoi(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "age must be an integer.")
				return
			}
			sub.Age = &age
		}
		if v := strings.TrimSpace(r.FormValue("gender")); v != "" {
			sub.Gender = &v
		}

		job, err := svc.Submit(r.Context(), sub)
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		response.OK(w, map[string]any{
			"job_id":  job.JobID,
			"status":  job.Status,
			"message": "Report submitted for analysis.",
		})
	}
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intake.ErrInvalidFile), errors.Is(err, intake.ErrRecaptcha):
		response.Error(w, http.StatusBadRequest, userMessage(err))
	case errors.Is(err, pipeline.ErrQueueFull):
		response.Error(w, http.StatusServiceUnavailable, "The service is busy. Please try again shortly.")
	default:
		slog.Error("submission failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "Submission failed. Please try again.")
	}
}

// userMessage strips the sentinel prefix, leaving the human-readable part
// the validators attached.
func userMessage(err error) string {
	msg := err.Error()
	for _, prefix := range []string{"invalid file: ", "recaptcha verification failed: "} {
		if rest, ok := strings.CutPrefix(msg, prefix); ok {
			return rest
		}
	}
	if errors.Is(err, intake.ErrRecaptcha) {
		return "reCAPTCHA verification failed"
	}
	return msg
}
