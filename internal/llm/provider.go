package llm

import (
	"context"

	"github.com/usmanhx/labinsight/pkg/models"
)

// Classification is the cheap-model verdict on whether extracted text is a
// lab report.
type Classification struct {
	IsLabReport bool    `json:"is_lab_report"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// AnalysisRequest carries the redacted report text plus optional patient
// context into the analysis model.
type AnalysisRequest struct {
	Text   string
	Age    *int
	Gender *string
}

// ChatMessage is one turn of caller-supplied conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenFunc receives streamed chat tokens as they are produced. Returning an
// error stops the stream and cancels the underlying model call.
type TokenFunc func(ctx context.Context, chunk []byte) error

// Provider is the model-backed capability boundary the pipeline and chat
// engine depend on. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Classify(ctx context.Context, text string) (Classification, error)
	Analyze(ctx context.Context, req AnalysisRequest) (*models.StructuredAnalysis, error)
	Translate(ctx context.Context, analysis *models.StructuredAnalysis, targetLang string) (*models.StructuredAnalysis, error)
	// ChatStream sends the prompt to the chat model and invokes onToken for
	// each produced token, returning the full response text.
	ChatStream(ctx context.Context, prompt string, onToken TokenFunc) (string, error)
}
