package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/usmanhx/labinsight/internal/api/response"
	"github.com/usmanhx/labinsight/internal/store"
)

// NewDownloadHandler returns the handler for GET /v1/download/{jobID}, serving
// the generated PDF as an attachment.
func NewDownloadHandler(st JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		job, err := st.GetJobByJobID(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "Report not found.")
				return
			}
			slog.Error("download lookup failed", "job_id", jobID, "error", err)
			response.Error(w, http.StatusInternalServerError, "Could not fetch report.")
			return
		}
		if time.Now().After(job.ExpiresAt) {
			response.Error(w, http.StatusNotFound, "Report not found.")
			return
		}
		if job.ResultPDFPath == nil {
			response.Error(w, http.StatusNotFound, "PDF not yet generated.")
			return
		}
		if _, err := os.Stat(*job.ResultPDFPath); err != nil {
			response.Error(w, http.StatusNotFound, "PDF not yet generated.")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="report_%s.pdf"`, job.JobID))
		http.ServeFile(w, r, *job.ResultPDFPath)
	}
}
