// Package pipeline runs submitted jobs through the analysis stages:
// extraction, redaction, classification, analysis, translation, charts, and
// rendering. Stages are sequential within a job; a bounded worker pool runs
// jobs concurrently.
package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Stage policies. A hard stage failure fails the job with a user-facing
// message; a soft stage failure degrades the result and the job completes.
const (
	PolicyHard = "hard"
	PolicySoft = "soft"
)

// Stage is one step of the pipeline.
type Stage struct {
	Name    string
	Policy  string
	Timeout time.Duration
	Run     func(ctx context.Context, js *jobState) error
}

// StageError wraps a stage failure with enough context for the orchestrator
// to decide whether the job fails or degrades.
type StageError struct {
	Stage  string
	Policy string
	// UserMessage is stored on the job and shown to the client. Empty means a
	// generic message is used.
	UserMessage string
	Err         error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
