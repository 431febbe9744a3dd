package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/usmanhx/labinsight/internal/config"
	"github.com/usmanhx/labinsight/pkg/models"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// maxRetries bounds in-place retries on parse/transient failures per call.
const maxRetries = 2

const (
	classifyTextCap = 4000
	analyzeTextCap  = 8000
)

// Client implements Provider on top of langchaingo. Separate models serve
// analysis (primary, expensive) and classification/translation/chat (cheap).
type Client struct {
	name        string
	analysis    llms.Model
	validation  llms.Model
	translation llms.Model
	chat        llms.Model
}

// NewClient constructs a Client from config. Called once at server startup.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	build := func(model string) (llms.Model, error) {
		return newModel(cfg, model)
	}

	analysis, err := build(cfg.AnalysisModel)
	if err != nil {
		return nil, fmt.Errorf("create analysis model: %w", err)
	}
	validation, err := build(cfg.ValidationModel)
	if err != nil {
		return nil, fmt.Errorf("create validation model: %w", err)
	}
	translation, err := build(cfg.TranslationModel)
	if err != nil {
		return nil, fmt.Errorf("create translation model: %w", err)
	}
	chat, err := build(cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	return &Client{
		name:        cfg.Provider,
		analysis:    analysis,
		validation:  validation,
		translation: translation,
		chat:        chat,
	}, nil
}

func newModel(cfg config.LLMConfig, model string) (llms.Model, error) {
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "groq":
		// Groq exposes an OpenAI-compatible API.
		base := cfg.BaseURL
		if base == "" {
			base = groqBaseURL
		}
		return openai.New(openai.WithToken(cfg.APIKey), openai.WithModel(model), openai.WithBaseURL(base))
	case "anthropic":
		return anthropic.New(anthropic.WithToken(cfg.APIKey), anthropic.WithModel(model))
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: must be one of openai, anthropic, ollama, groq", cfg.Provider)
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Classify(ctx context.Context, text string) (Classification, error) {
	prompt := fmt.Sprintf(classifyPrompt, truncate(text, classifyTextCap))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err := c.generate(ctx, c.validation, prompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		result, err := parseClassification(raw)
		if err != nil {
			slog.Warn("classification parse failed", "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		return result, nil
	}
	return Classification{}, lastErr
}

func (c *Client) Analyze(ctx context.Context, req AnalysisRequest) (*models.StructuredAnalysis, error) {
	ageStr := "not provided"
	if req.Age != nil {
		ageStr = fmt.Sprintf("%d", *req.Age)
	}
	genderStr := "not provided"
	if req.Gender != nil {
		genderStr = *req.Gender
	}
	prompt := fmt.Sprintf(analyzePrompt, ageStr, genderStr, truncate(req.Text, analyzeTextCap))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err := c.generate(ctx, c.analysis, prompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		analysis, err := parseAnalysis(raw)
		if err != nil {
			slog.Warn("analysis parse failed", "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		return analysis, nil
	}
	return nil, lastErr
}

func (c *Client) Translate(ctx context.Context, analysis *models.StructuredAnalysis, targetLang string) (*models.StructuredAnalysis, error) {
	encoded, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	prompt := fmt.Sprintf(translatePrompt, languageName(targetLang), string(encoded))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err := c.generate(ctx, c.translation, prompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		translated, err := parseAnalysis(raw)
		if err != nil {
			slog.Warn("translation parse failed", "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		if len(translated.Categories) != len(analysis.Categories) {
			lastErr = fmt.Errorf("%w: translation changed category count", ErrInvalidResponse)
			continue
		}
		return translated, nil
	}
	return nil, lastErr
}

func (c *Client) ChatStream(ctx context.Context, prompt string, onToken TokenFunc) (string, error) {
	full, err := llms.GenerateFromSinglePrompt(ctx, c.chat, prompt,
		llms.WithStreamingFunc(onToken))
	if err != nil {
		return full, wrapCallErr(err)
	}
	return full, nil
}

func (c *Client) generate(ctx context.Context, model llms.Model, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, model, prompt)
	if err != nil {
		return "", wrapCallErr(err)
	}
	return strings.TrimSpace(out), nil
}

// wrapCallErr keeps context errors recognizable and tags everything else as a
// provider availability problem.
func wrapCallErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes]
}

func languageName(code string) string {
	switch code {
	case "ur":
		return "Urdu"
	case "es":
		return "Spanish"
	case "fr":
		return "French"
	case "ar":
		return "Arabic"
	case "hi":
		return "Hindi"
	default:
		return code
	}
}

var _ Provider = (*Client)(nil)
