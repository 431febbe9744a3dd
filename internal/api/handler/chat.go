package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/usmanhx/labinsight/internal/api/response"
	"github.com/usmanhx/labinsight/internal/chat"
	"github.com/usmanhx/labinsight/internal/llm"
	"github.com/usmanhx/labinsight/internal/store"
)

// ChatEngine is the conversational surface the chat endpoints depend on.
type ChatEngine interface {
	Suggest(ctx context.Context, jobID string) (*chat.Suggestions, error)
	Converse(ctx context.Context, req chat.Request, onToken llm.TokenFunc) (*chat.Result, error)
}

type chatRequest struct {
	Message string            `json:"message"`
	History []llm.ChatMessage `json:"conversation_history"`
}

// NewChatSuggestionsHandler returns the handler for
// GET /v1/chat/{jobID}/suggestions.
func NewChatSuggestionsHandler(engine ChatEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		suggestions, err := engine.Suggest(r.Context(), jobID)
		if err != nil {
			writeChatError(w, jobID, err)
			return
		}
		response.OK(w, suggestions)
	}
}

// NewChatHandler returns the handler for POST /v1/chat/{jobID}. Errors raised
// before the stream is dispatched come back as plain JSON; once tokens have
// been flushed the status line is gone, so later failures become error events
// on the stream itself.
func NewChatHandler(engine ChatEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
		if req.Message == "" {
			response.Error(w, http.StatusBadRequest, "message is required.")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			response.Error(w, http.StatusInternalServerError, "Streaming unsupported.")
			return
		}

		streamed := false
		onToken := func(ctx context.Context, chunk []byte) error {
			if !streamed {
				streamed = true
				w.Header().Set("Content-Type", "text/event-stream")
				w.Header().Set("Cache-Control", "no-cache")
				w.Header().Set("Connection", "keep-alive")
				w.Header().Set("X-Accel-Buffering", "no")
				w.WriteHeader(http.StatusOK)
			}
			if err := writeSSE(w, "token", map[string]string{"content": string(chunk)}); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		}

		result, err := engine.Converse(r.Context(), chat.Request{
			JobID:   jobID,
			Message: req.Message,
			History: req.History,
		}, onToken)
		if err != nil {
			if !streamed {
				writeChatError(w, jobID, err)
				return
			}
			slog.Error("chat stream interrupted", "job_id", jobID, "error", err)
			writeSSE(w, "error", map[string]string{"message": "The response was interrupted. Please try again."})
			flusher.Flush()
			return
		}

		if !streamed {
			// Empty model response; still open the stream so done is delivered.
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
		}
		writeSSE(w, "done", map[string]any{
			"suggestions":        result.FollowUps,
			"messages_remaining": result.MessagesRemaining,
		})
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

func writeChatError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case errors.Is(err, chat.ErrDisabled):
		response.Error(w, http.StatusServiceUnavailable, "Chat feature is disabled.")
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Report not found.")
	case errors.Is(err, chat.ErrNotReady):
		response.Error(w, http.StatusBadRequest, "Report analysis not yet complete.")
	case errors.Is(err, chat.ErrNoAnalysis):
		response.Error(w, http.StatusBadRequest, "Analysis results not available.")
	case errors.Is(err, chat.ErrMessageLength):
		response.Error(w, http.StatusBadRequest, "Message is too long.")
	case errors.Is(err, chat.ErrLimitReached):
		response.Error(w, http.StatusTooManyRequests, "Message limit reached for this report.")
	case errors.Is(err, llm.ErrProviderUnavailable):
		response.Error(w, http.StatusServiceUnavailable, "Chat is temporarily unavailable. Please try again later.")
	default:
		slog.Error("chat request failed", "job_id", jobID, "error", err)
		response.Error(w, http.StatusInternalServerError, "Chat is temporarily unavailable. Please try again later.")
	}
}
