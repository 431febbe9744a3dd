package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobSourceWeb      = "web"
	JobSourceWhatsApp = "whatsapp"
)

// Job tracks one submitted lab-report document end to end. The API returns a
// job_id on POST /v1/analyze-report; the client polls GET /v1/status/{job_id}
// until status is completed or failed. Only the pipeline mutates a non-terminal
// job; everything else reads.
type Job struct {
	ID    uuid.UUID `db:"id"     json:"-"`
	JobID string    `db:"job_id" json:"job_id"`

	Status string `db:"status" json:"status"`

	FilePath string `db:"file_path" json:"-"`
	FileType string `db:"file_type" json:"-"`

	Age            *int    `db:"age"             json:"age,omitempty"`
	Gender         *string `db:"gender"          json:"gender,omitempty"`
	SourceLanguage string  `db:"source_language" json:"source_language"`
	OutputLanguage string  `db:"output_language" json:"output_language"`
	// ResultLanguage is the language the narrative was actually produced in.
	// Differs from OutputLanguage when translation soft-failed.
	ResultLanguage *string `db:"result_language" json:"result_language,omitempty"`

	ExtractedText  *string `db:"extracted_text"  json:"-"`
	ResultJSON     *string `db:"result_json"     json:"-"`
	ResultMarkdown *string `db:"result_markdown" json:"result_markdown,omitempty"`
	ResultPDFPath  *string `db:"result_pdf_path" json:"-"`

	ErrorMessage *string `db:"error_message" json:"error_message,omitempty"`

	Source   string  `db:"source"    json:"source"`
	ClientIP *string `db:"client_ip" json:"-"`

	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
