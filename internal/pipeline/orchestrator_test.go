package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhx/labinsight/internal/config"
	"github.com/usmanhx/labinsight/internal/llm"
	"github.com/usmanhx/labinsight/internal/llm/mock"
	"github.com/usmanhx/labinsight/internal/ocr"
	"github.com/usmanhx/labinsight/internal/report"
	"github.com/usmanhx/labinsight/internal/storage"
	"github.com/usmanhx/labinsight/internal/store/storetest"
	"github.com/usmanhx/labinsight/pkg/models"
)

type extractorFunc func(ctx context.Context, filePath, mimeType string) (string, error)

func (f extractorFunc) Extract(ctx context.Context, filePath, mimeType string) (string, error) {
	return f(ctx, filePath, mimeType)
}

const sampleText = "Complete Blood Count\nHemoglobin 11.2 g/dL (Reference: 13.0 - 17.0)\nWBC Count 7200 /uL (Reference: 4000 - 11000)"

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Workers:             1,
		QueueSize:           4,
		ConfidenceThreshold: 0.8,
		ExtractionTimeout:   5 * time.Second,
		ClassifyTimeout:     5 * time.Second,
		AnalysisTimeout:     5 * time.Second,
		TranslationTimeout:  5 * time.Second,
		RenderTimeout:       5 * time.Second,
	}
}

func newTestOrchestrator(t *testing.T, st *storetest.Store, provider llm.Provider, extractor ocr.Extractor) *Orchestrator {
	t.Helper()
	base := t.TempDir()
	layout := storage.NewLayout(filepath.Join(base, "uploads"), filepath.Join(base, "outputs"))
	require.NoError(t, layout.Init())
	return NewOrchestrator(st, provider, extractor, layout, &report.PDFRenderer{}, testPipelineConfig())
}

func seedJob(t *testing.T, st *storetest.Store, outputLang string) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:             uuid.New(),
		JobID:          uuid.NewString(),
		Status:         models.JobStatusPending,
		FilePath:       "/nonexistent/report.pdf",
		FileType:       "application/pdf",
		SourceLanguage: "en",
		OutputLanguage: outputLang,
		Source:         models.JobSourceWeb,
		ExpiresAt:      time.Now().Add(48 * time.Hour),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, st.CreateJob(context.Background(), job))
	return job
}

func passthroughExtractor() ocr.Extractor {
	return extractorFunc(func(ctx context.Context, filePath, mimeType string) (string, error) {
		return sampleText, nil
	})
}

func TestProcessHappyPath(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "en")
	o := newTestOrchestrator(t, st, &mock.Provider{}, passthroughExtractor())

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	require.NotNil(t, got)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.ResultLanguage)
	assert.Equal(t, "en", *got.ResultLanguage)
	require.NotNil(t, got.ExtractedText)
	assert.Equal(t, sampleText, *got.ExtractedText)
	require.NotNil(t, got.ResultJSON)
	assert.Contains(t, *got.ResultJSON, "Hemoglobin")
	require.NotNil(t, got.ResultMarkdown)
	assert.Contains(t, *got.ResultMarkdown, "# Lab Report Analysis")
	require.NotNil(t, got.ResultPDFPath)
	assert.Nil(t, got.ErrorMessage)
}

func TestProcessRedactsBeforeModel(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "en")

	var classified string
	provider := &mock.Provider{
		ClassifyFunc: func(ctx context.Context, text string) (llm.Classification, error) {
			classified = text
			return llm.Classification{IsLabReport: true, Confidence: 0.95}, nil
		},
	}
	extractor := extractorFunc(func(ctx context.Context, filePath, mimeType string) (string, error) {
		return "Patient Name: John Doe\n" + sampleText, nil
	})
	o := newTestOrchestrator(t, st, provider, extractor)

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.NotContains(t, classified, "John Doe")
	assert.Contains(t, classified, "[REDACTED]")
	assert.NotContains(t, *got.ExtractedText, "John Doe")
}

func TestProcessUnreadableDocument(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "en")

	extractor := extractorFunc(func(ctx context.Context, filePath, mimeType string) (string, error) {
		return "", fmt.Errorf("%w: the document appears to be blurred or unreadable, please upload a clearer copy", ocr.ErrUnreadable)
	})
	o := newTestOrchestrator(t, st, &mock.Provider{}, extractor)

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "blurred or unreadable")
}

func TestProcessRejectsNonLabReport(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "en")

	provider := &mock.Provider{
		ClassifyFunc: func(ctx context.Context, text string) (llm.Classification, error) {
			return llm.Classification{IsLabReport: false, Confidence: 0.9, Reason: "looks like an invoice"}, nil
		},
	}
	o := newTestOrchestrator(t, st, provider, passthroughExtractor())

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "does not appear to be a lab report")
	assert.Contains(t, *got.ErrorMessage, "looks like an invoice")
}

func TestProcessRejectsLowConfidence(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "en")

	provider := &mock.Provider{
		ClassifyFunc: func(ctx context.Context, text string) (llm.Classification, error) {
			return llm.Classification{IsLabReport: true, Confidence: 0.5}, nil
		},
	}
	o := newTestOrchestrator(t, st, provider, passthroughExtractor())

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
}

func TestProcessProviderUnavailable(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "en")

	provider := &mock.Provider{
		AnalyzeFunc: func(ctx context.Context, req llm.AnalysisRequest) (*models.StructuredAnalysis, error) {
			return nil, fmt.Errorf("%w: connection refused", llm.ErrProviderUnavailable)
		},
	}
	o := newTestOrchestrator(t, st, provider, passthroughExtractor())

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "temporarily unavailable")
}

func TestProcessTranslationFailureDegradesToEnglish(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "ur")

	provider := &mock.Provider{
		TranslateFunc: func(ctx context.Context, a *models.StructuredAnalysis, lang string) (*models.StructuredAnalysis, error) {
			return nil, errors.New("translation blew up")
		},
	}
	o := newTestOrchestrator(t, st, provider, passthroughExtractor())

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.ResultLanguage)
	assert.Equal(t, "en", *got.ResultLanguage)
	assert.Nil(t, got.ErrorMessage)
}

func TestProcessTranslationSuccess(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "ur")
	o := newTestOrchestrator(t, st, &mock.Provider{}, passthroughExtractor())

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.ResultLanguage)
	assert.Equal(t, "ur", *got.ResultLanguage)
}

func TestProcessPanicRecovery(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "en")

	provider := &mock.Provider{
		AnalyzeFunc: func(ctx context.Context, req llm.AnalysisRequest) (*models.StructuredAnalysis, error) {
			panic("boom")
		},
	}
	o := newTestOrchestrator(t, st, provider, passthroughExtractor())

	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
}

func TestProcessSkipsTerminalJob(t *testing.T) {
	st := storetest.New()
	job := seedJob(t, st, "en")
	require.NoError(t, st.UpdateJobStatus(context.Background(), job.ID, models.JobStatusProcessing))
	require.NoError(t, st.UpdateJobStatus(context.Background(), job.ID, models.JobStatusFailed))

	o := newTestOrchestrator(t, st, &mock.Provider{}, passthroughExtractor())
	o.Process(context.Background(), job.JobID)

	got := st.Snapshot(job.JobID)
	assert.Equal(t, models.JobStatusFailed, got.Status)
}
