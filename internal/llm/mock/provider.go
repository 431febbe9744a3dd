// Package mock provides an llm.Provider implementation for tests.
package mock

import (
	"context"

	"github.com/usmanhx/labinsight/internal/llm"
	"github.com/usmanhx/labinsight/pkg/models"
)

// Provider satisfies llm.Provider with overridable function fields.
type Provider struct {
	Name_          string
	ClassifyFunc   func(ctx context.Context, text string) (llm.Classification, error)
	AnalyzeFunc    func(ctx context.Context, req llm.AnalysisRequest) (*models.StructuredAnalysis, error)
	TranslateFunc  func(ctx context.Context, a *models.StructuredAnalysis, lang string) (*models.StructuredAnalysis, error)
	ChatStreamFunc func(ctx context.Context, prompt string, onToken llm.TokenFunc) (string, error)
}

func (m *Provider) Name() string {
	if m.Name_ == "" {
		return "mock"
	}
	return m.Name_
}

func (m *Provider) Classify(ctx context.Context, text string) (llm.Classification, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, text)
	}
	return llm.Classification{IsLabReport: true, Confidence: 0.95, Reason: "mock"}, nil
}

func (m *Provider) Analyze(ctx context.Context, req llm.AnalysisRequest) (*models.StructuredAnalysis, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, req)
	}
	a := DefaultAnalysis()
	return &a, nil
}

func (m *Provider) Translate(ctx context.Context, a *models.StructuredAnalysis, lang string) (*models.StructuredAnalysis, error) {
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, a, lang)
	}
	return a, nil
}

func (m *Provider) ChatStream(ctx context.Context, prompt string, onToken llm.TokenFunc) (string, error) {
	if m.ChatStreamFunc != nil {
		return m.ChatStreamFunc(ctx, prompt, onToken)
	}
	full := ""
	for _, tok := range []string{"mock ", "chat ", "response"} {
		if err := onToken(ctx, []byte(tok)); err != nil {
			return full, err
		}
		full += tok
	}
	return full, nil
}

// Failing returns a Provider whose every call returns err.
func Failing(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		ClassifyFunc: func(context.Context, string) (llm.Classification, error) {
			return llm.Classification{}, err
		},
		AnalyzeFunc: func(context.Context, llm.AnalysisRequest) (*models.StructuredAnalysis, error) {
			return nil, err
		},
		TranslateFunc: func(context.Context, *models.StructuredAnalysis, string) (*models.StructuredAnalysis, error) {
			return nil, err
		},
		ChatStreamFunc: func(context.Context, string, llm.TokenFunc) (string, error) {
			return "", err
		},
	}
}

// DefaultAnalysis returns a small, fully populated StructuredAnalysis used as
// the default mock output.
func DefaultAnalysis() models.StructuredAnalysis {
	unit := "g/dL"
	a := models.StructuredAnalysis{
		Summary: "Most values are within range; hemoglobin is slightly low.",
		Categories: []models.Category{
			{
				Name: "Complete Blood Count",
				Findings: []models.Finding{
					{
						TestName:       "Hemoglobin",
						Value:          models.NumericValue(11.2),
						Unit:           &unit,
						ReferenceRange: "13.0 - 17.0",
						RefSource:      models.RefSourceDocument,
						Severity:       models.SeverityBorderline,
						Interpretation: "Slightly below the reference range.",
					},
					{
						TestName:       "Blood Group",
						Value:          models.QualitativeValue("O Positive"),
						ReferenceRange: "N/A",
						RefSource:      models.RefSourceDocument,
						Severity:       models.SeverityNormal,
						Interpretation: "Informational.",
					},
				},
			},
		},
		AbnormalAnalysis:     "Hemoglobin is mildly reduced.",
		ClinicalAssociations: "Mild reductions are commonly associated with iron deficiency.",
		LifestyleTips:        "Consider iron-rich foods.",
		Disclaimer:           models.DefaultDisclaimer,
	}
	a.Normalize()
	return a
}

var _ llm.Provider = (*Provider)(nil)
