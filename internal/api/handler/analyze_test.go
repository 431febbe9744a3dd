package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhx/labinsight/internal/api"
	"github.com/usmanhx/labinsight/internal/api/handler"
	"github.com/usmanhx/labinsight/internal/intake"
	"github.com/usmanhx/labinsight/internal/pipeline"
	"github.com/usmanhx/labinsight/pkg/models"
)

type mockSubmitter struct {
	fn   func(sub intake.Submission) (*models.Job, error)
	last *intake.Submission
}

func (m *mockSubmitter) Submit(_ context.Context, sub intake.Submission) (*models.Job, error) {
	m.last = &sub
	return m.fn(sub)
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)},
		"Content-Type":        {"application/pdf"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func analyzeRouter(svc handler.Submitter) http.Handler {
	return api.NewRouter(api.Dependencies{
		AnalyzeHandler: handler.NewAnalyzeHandler(svc, 20*1024*1024),
	})
}

func TestAnalyzeAccepted(t *testing.T) {
	svc := &mockSubmitter{fn: func(sub intake.Submission) (*models.Job, error) {
		return &models.Job{JobID: "job-1", Status: models.JobStatusPending}, nil
	}}

	body, contentType := multipartUpload(t, map[string]string{
		"age":      "42",
		"gender":   "male",
		"language": "ur",
	}, "report.pdf", []byte("%PDF-1.4 test"))

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-report", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	analyzeRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp["job_id"])
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "Report submitted for analysis.", resp["message"])

	require.NotNil(t, svc.last)
	assert.Equal(t, "report.pdf", svc.last.Filename)
	assert.Equal(t, "application/pdf", svc.last.MIMEType)
	assert.Equal(t, "ur", svc.last.Language)
	require.NotNil(t, svc.last.Age)
	assert.Equal(t, 42, *svc.last.Age)
}

func TestAnalyzeMissingFile(t *testing.T) {
	svc := &mockSubmitter{fn: func(intake.Submission) (*models.Job, error) {
		t.Fatal("Submit should not be called")
		return nil, nil
	}}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("language", "en"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-report", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	analyzeRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")
}

func TestAnalyzeBadAge(t *testing.T) {
	svc := &mockSubmitter{fn: func(intake.Submission) (*models.Job, error) {
		t.Fatal("Submit should not be called")
		return nil, nil
	}}

	body, contentType := multipartUpload(t, map[string]string{"age": "forty"},
		"report.pdf", []byte("%PDF-1.4"))

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-report", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	analyzeRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "age must be an integer")
}

func TestAnalyzeInvalidFileRejected(t *testing.T) {
	svc := &mockSubmitter{fn: func(intake.Submission) (*models.Job, error) {
		return nil, fmt.Errorf("%w: unsupported file type: text/plain. Allowed: PDF, JPEG, PNG", intake.ErrInvalidFile)
	}}

	body, contentType := multipartUpload(t, nil, "report.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-report", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	analyzeRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, float64(400), resp["code"])
	assert.Equal(t, "unsupported file type: text/plain. Allowed: PDF, JPEG, PNG", resp["message"])
}

func TestAnalyzeQueueFull(t *testing.T) {
	svc := &mockSubmitter{fn: func(intake.Submission) (*models.Job, error) {
		return nil, pipeline.ErrQueueFull
	}}

	body, contentType := multipartUpload(t, nil, "report.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-report", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	analyzeRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "busy")
}
