// Package chat implements post-analysis Q&A: starter suggestions, a per-job
// message quota, and streamed answers grounded in the stored analysis.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/usmanhx/labinsight/internal/cache"
	"github.com/usmanhx/labinsight/internal/config"
	"github.com/usmanhx/labinsight/internal/llm"
	"github.com/usmanhx/labinsight/internal/store"
	"github.com/usmanhx/labinsight/pkg/models"
)

var (
	ErrDisabled      = errors.New("chat feature is disabled")
	ErrNotReady      = errors.New("report analysis not yet complete")
	ErrNoAnalysis    = errors.New("analysis results not available")
	ErrLimitReached  = errors.New("message limit reached for this report")
	ErrMessageLength = errors.New("message exceeds length limit")
)

// Engine answers questions about completed reports.
type Engine struct {
	store     store.Store
	cache     cache.Cache
	provider  llm.Provider
	cfg       config.ChatConfig
	retention time.Duration
}

func NewEngine(st store.Store, c cache.Cache, provider llm.Provider, cfg config.ChatConfig, retention time.Duration) *Engine {
	return &Engine{
		store:     st,
		cache:     c,
		provider:  provider,
		cfg:       cfg,
		retention: retention,
	}
}

// Suggestions is the payload for GET /v1/chat/{job_id}/suggestions.
type Suggestions struct {
	Suggestions       []string `json:"suggestions"`
	MessagesRemaining int      `json:"messages_remaining"`
}

// Request is one chat turn.
type Request struct {
	JobID   string
	Message string
	History []llm.ChatMessage
}

// Result carries the completed stream's outcome: the full response, contextual
// follow-up questions, and the quota left on the job.
type Result struct {
	Response          string
	FollowUps         []string
	MessagesRemaining int
}

// Suggest returns starter questions for a completed report.
func (e *Engine) Suggest(ctx context.Context, jobID string) (*Suggestions, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}

	analysis, _, err := e.loadAnalysis(ctx, jobID)
	if err != nil {
		return nil, err
	}

	remaining, err := e.remaining(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &Suggestions{
		Suggestions:       StarterSuggestions(analysis),
		MessagesRemaining: remaining,
	}, nil
}

// Converse streams an answer through onToken and returns the final result.
// The quota is charged when the stream is dispatched; a stream the client
// abandons still counts. A turn rejected before dispatch, or one whose
// backend failed before producing a single token, is refunded.
func (e *Engine) Converse(ctx context.Context, req Request, onToken llm.TokenFunc) (*Result, error) {
	if !e.cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(req.Message) > e.cfg.MaxMessageLength {
		return nil, fmt.Errorf("%w: %d characters, limit %d", ErrMessageLength, len(req.Message), e.cfg.MaxMessageLength)
	}

	_, analysisJSON, err := e.loadAnalysis(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	// INCR returns a unique value per caller, so concurrent turns cannot both
	// see the last slot. Values past the ceiling are refunded and rejected.
	count, err := e.cache.IncrIfAbsentExpiry(ctx, cache.ChatCountKey(req.JobID), e.retention)
	if err != nil {
		return nil, fmt.Errorf("chat quota: %w", err)
	}
	if count > int64(e.cfg.MessageLimit) {
		if _, derr := e.cache.Decr(ctx, cache.ChatCountKey(req.JobID)); derr != nil {
			slog.Warn("chat quota refund failed", "job_id", req.JobID, "error", derr)
		}
		return nil, fmt.Errorf("%w: limit %d", ErrLimitReached, e.cfg.MessageLimit)
	}
	remaining := e.cfg.MessageLimit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	streamCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	prompt := llm.BuildChatPrompt(analysisJSON, req.History, req.Message)

	// A backend failure before any token reached the client is refunded; a
	// stream that died midway still counts against the quota.
	emitted := false
	wrapped := func(ctx context.Context, chunk []byte) error {
		emitted = true
		return onToken(ctx, chunk)
	}
	response, err := e.provider.ChatStream(streamCtx, prompt, wrapped)
	if err != nil {
		if !emitted {
			if _, derr := e.cache.Decr(ctx, cache.ChatCountKey(req.JobID)); derr != nil {
				slog.Warn("chat quota refund failed", "job_id", req.JobID, "error", derr)
			}
		}
		return nil, err
	}

	return &Result{
		Response:          response,
		FollowUps:         FollowUpSuggestions(req.Message, response),
		MessagesRemaining: remaining,
	}, nil
}

// loadAnalysis fetches the job and its parsed analysis. Expired jobs have
// been swept and surface as store.ErrNotFound.
func (e *Engine) loadAnalysis(ctx context.Context, jobID string) (*models.StructuredAnalysis, string, error) {
	job, err := e.store.GetJobByJobID(ctx, jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, "", ErrNotReady
	}
	if job.ResultJSON == nil || *job.ResultJSON == "" {
		return nil, "", ErrNoAnalysis
	}

	var analysis models.StructuredAnalysis
	if err := json.Unmarshal([]byte(*job.ResultJSON), &analysis); err != nil {
		slog.Error("stored analysis unparseable", "job_id", jobID, "error", err)
		return nil, "", ErrNoAnalysis
	}
	return &analysis, *job.ResultJSON, nil
}

func (e *Engine) remaining(ctx context.Context, jobID string) (int, error) {
	count, err := e.cache.GetInt(ctx, cache.ChatCountKey(jobID))
	if err != nil {
		return 0, fmt.Errorf("chat quota: %w", err)
	}
	remaining := e.cfg.MessageLimit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
