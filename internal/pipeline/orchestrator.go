package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/usmanhx/labinsight/internal/chart"
	"github.com/usmanhx/labinsight/internal/config"
	"github.com/usmanhx/labinsight/internal/llm"
	"github.com/usmanhx/labinsight/internal/ocr"
	"github.com/usmanhx/labinsight/internal/redact"
	"github.com/usmanhx/labinsight/internal/report"
	"github.com/usmanhx/labinsight/internal/storage"
	"github.com/usmanhx/labinsight/internal/store"
	"github.com/usmanhx/labinsight/pkg/models"
)

const (
	msgGenericFailure     = "Analysis failed due to an internal error. Please try again."
	msgProviderDown       = "Analysis is temporarily unavailable. Please try again later."
	msgNotALabReport      = "This does not appear to be a lab report."
	msgExtractionTimedOut = "The document took too long to process. Please try a smaller file."
)

// jobState is the scratch space threaded through a single job's stages.
type jobState struct {
	job *models.Job

	text       string
	analysis   *models.StructuredAnalysis
	charts     map[int]chart.CategoryCharts
	markdown   string
	pdfPath    string
	resultLang string
}

// Orchestrator drives one job at a time through the stage list.
type Orchestrator struct {
	store     store.Store
	provider  llm.Provider
	extractor ocr.Extractor
	layout    *storage.Layout
	pdf       *report.PDFRenderer
	cfg       config.PipelineConfig
}

func NewOrchestrator(st store.Store, provider llm.Provider, extractor ocr.Extractor, layout *storage.Layout, pdf *report.PDFRenderer, cfg config.PipelineConfig) *Orchestrator {
	return &Orchestrator{
		store:     st,
		provider:  provider,
		extractor: extractor,
		layout:    layout,
		pdf:       pdf,
		cfg:       cfg,
	}
}

// Process runs the full pipeline for one job. It owns the job's status from
// processing through completed or failed, and never returns an error for
// job-level failures; those are recorded on the job row.
func (o *Orchestrator) Process(ctx context.Context, jobID string) {
	log := slog.With("job_id", jobID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic", "panic", r, "stack", string(debug.Stack()))
			o.failByJobID(ctx, jobID, msgGenericFailure)
		}
	}()

	job, err := o.store.GetJobByJobID(ctx, jobID)
	if err != nil {
		log.Error("load job", "error", err)
		return
	}
	if job.Terminal() {
		log.Warn("job already terminal, skipping", "status", job.Status)
		return
	}

	if err := o.store.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing); err != nil {
		log.Error("mark processing", "error", err)
		return
	}

	js := &jobState{job: job, resultLang: "en"}
	start := time.Now()

	for _, stage := range o.stages() {
		stageStart := time.Now()
		err := o.runStage(ctx, stage, js)
		if err == nil {
			log.Info("stage completed", "stage", stage.Name, "duration", time.Since(stageStart))
			continue
		}

		var se *StageError
		if !errors.As(err, &se) {
			se = &StageError{Stage: stage.Name, Policy: stage.Policy, Err: err}
		}

		if se.Policy == PolicySoft {
			log.Warn("stage degraded", "stage", se.Stage, "error", se.Err)
			continue
		}

		msg := se.UserMessage
		if msg == "" {
			msg = userMessageFor(se.Err)
		}
		log.Error("stage failed", "stage", se.Stage, "error", se.Err)
		o.fail(ctx, job, msg)
		return
	}

	if err := o.store.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted,
		store.WithResultLanguage(js.resultLang)); err != nil {
		log.Error("mark completed", "error", err)
		return
	}
	log.Info("pipeline completed", "duration", time.Since(start), "result_language", js.resultLang)
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, js *jobState) error {
	stageCtx := ctx
	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, stage.Timeout)
		defer cancel()
	}
	if err := stage.Run(stageCtx, js); err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return se
		}
		return &StageError{Stage: stage.Name, Policy: stage.Policy, Err: err, UserMessage: userMessageForStage(stage.Name, err)}
	}
	return nil
}

func (o *Orchestrator) stages() []Stage {
	return []Stage{
		{Name: "extract", Policy: PolicyHard, Timeout: o.cfg.ExtractionTimeout, Run: o.extract},
		{Name: "redact", Policy: PolicyHard, Run: o.redact},
		{Name: "classify", Policy: PolicyHard, Timeout: o.cfg.ClassifyTimeout, Run: o.classify},
		{Name: "analyze", Policy: PolicyHard, Timeout: o.cfg.AnalysisTimeout, Run: o.analyze},
		{Name: "translate", Policy: PolicySoft, Timeout: o.cfg.TranslationTimeout, Run: o.translate},
		{Name: "charts", Policy: PolicySoft, Timeout: o.cfg.RenderTimeout, Run: o.renderCharts},
		{Name: "render", Policy: PolicyHard, Timeout: o.cfg.RenderTimeout, Run: o.render},
	}
}

func (o *Orchestrator) extract(ctx context.Context, js *jobState) error {
	text, err := o.extractor.Extract(ctx, js.job.FilePath, js.job.FileType)
	if err != nil {
		return err
	}
	js.text = text
	return nil
}

// redact scrubs PII before any text reaches a model provider, then persists
// the scrubbed text as the job's extracted_text artifact.
func (o *Orchestrator) redact(ctx context.Context, js *jobState) error {
	js.text = redact.Scrub(js.text)
	return o.store.SaveJobArtifacts(ctx, js.job.ID, store.WithExtractedText(js.text))
}

func (o *Orchestrator) classify(ctx context.Context, js *jobState) error {
	result, err := o.provider.Classify(ctx, js.text)
	if err != nil {
		return err
	}
	if !result.IsLabReport || result.Confidence < o.cfg.ConfidenceThreshold {
		msg := msgNotALabReport
		if result.Reason != "" {
			msg = fmt.Sprintf("%s Reason: %s", msgNotALabReport, result.Reason)
		}
		return &StageError{
			Stage:       "classify",
			Policy:      PolicyHard,
			UserMessage: msg,
			Err:         fmt.Errorf("classification rejected: is_lab_report=%v confidence=%.2f", result.IsLabReport, result.Confidence),
		}
	}
	return nil
}

func (o *Orchestrator) analyze(ctx context.Context, js *jobState) error {
	analysis, err := o.provider.Analyze(ctx, llm.AnalysisRequest{
		Text:   js.text,
		Age:    js.job.Age,
		Gender: js.job.Gender,
	})
	if err != nil {
		return err
	}
	js.analysis = analysis
	return o.saveAnalysis(ctx, js)
}

// translate produces the narrative in the requested output language. Failure
// is soft: the English analysis remains the deliverable and result_language
// records what was actually produced.
func (o *Orchestrator) translate(ctx context.Context, js *jobState) error {
	if js.job.OutputLanguage == "" || js.job.OutputLanguage == "en" {
		return nil
	}
	translated, err := o.provider.Translate(ctx, js.analysis, js.job.OutputLanguage)
	if err != nil {
		return fmt.Errorf("translate to %s: %w", js.job.OutputLanguage, err)
	}
	js.analysis = translated
	js.resultLang = js.job.OutputLanguage
	return o.saveAnalysis(ctx, js)
}

func (o *Orchestrator) renderCharts(ctx context.Context, js *jobState) error {
	charts, err := chart.Generate(js.analysis, o.layout.ChartsDir(js.job.JobID))
	if err != nil {
		return err
	}
	js.charts = charts
	return nil
}

// render produces the markdown deliverable (hard) and the PDF (soft: a
// completed job without a PDF is still useful).
func (o *Orchestrator) render(ctx context.Context, js *jobState) error {
	js.markdown = report.RenderMarkdown(js.analysis)

	opts := []store.JobUpdateOption{store.WithResultMarkdown(js.markdown)}

	pdfPath := o.layout.PDFPath(js.job.JobID)
	if err := o.pdf.Render(js.analysis, js.charts, pdfPath); err != nil {
		slog.Warn("pdf generation failed", "job_id", js.job.JobID, "error", err)
	} else {
		js.pdfPath = pdfPath
		opts = append(opts, store.WithResultPDFPath(pdfPath))
	}

	return o.store.SaveJobArtifacts(ctx, js.job.ID, opts...)
}

func (o *Orchestrator) saveAnalysis(ctx context.Context, js *jobState) error {
	raw, err := json.Marshal(js.analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	return o.store.SaveJobArtifacts(ctx, js.job.ID, store.WithResultJSON(string(raw)))
}

func (o *Orchestrator) fail(ctx context.Context, job *models.Job, msg string) {
	// The job row must record the failure even when the stage context is gone.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
	}
	if err := o.store.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed, store.WithErrorMessage(msg)); err != nil {
		slog.Error("mark failed", "job_id", job.JobID, "error", err)
	}
}

func (o *Orchestrator) failByJobID(ctx context.Context, jobID, msg string) {
	job, err := o.store.GetJobByJobID(ctx, jobID)
	if err != nil {
		slog.Error("load job for failure", "job_id", jobID, "error", err)
		return
	}
	o.fail(ctx, job, msg)
}

func userMessageForStage(stage string, err error) string {
	if stage == "extract" && errors.Is(err, context.DeadlineExceeded) {
		return msgExtractionTimedOut
	}
	return userMessageFor(err)
}

func userMessageFor(err error) string {
	switch {
	case errors.Is(err, ocr.ErrUnreadable):
		return err.Error()
	case errors.Is(err, llm.ErrProviderUnavailable):
		return msgProviderDown
	case errors.Is(err, context.DeadlineExceeded):
		return msgProviderDown
	default:
		return msgGenericFailure
	}
}
