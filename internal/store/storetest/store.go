// Package storetest provides an in-memory Store for tests that do not need a
// real database. It enforces the same status transitions as the Postgres
// implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/usmanhx/labinsight/internal/store"
	"github.com/usmanhx/labinsight/pkg/models"
)

type Store struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func New() *Store {
	return &Store{jobs: make(map[uuid.UUID]*models.Job)}
}

// Snapshot returns a copy of a job by public job ID, or nil. Test helper.
func (s *Store) Snapshot(jobID string) *models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.JobID == jobID {
			cp := *j
			return &cp
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *Store) GetJobByJobID(ctx context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.JobID == jobID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

var validTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing},
	models.JobStatusProcessing: {models.JobStatusCompleted, models.JobStatusFailed},
}

func (s *Store) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}

	valid := false
	for _, a := range validTransitions[j.Status] {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, j.Status, status)
	}

	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	apply(j, opts)
	return nil
}

func (s *Store) SaveJobArtifacts(ctx context.Context, id uuid.UUID, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	j.UpdatedAt = time.Now().UTC()
	apply(j, opts)
	return nil
}

func (s *Store) ListExpiredJobs(ctx context.Context, cutoff time.Time) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if !j.ExpiresAt.After(cutoff) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) DeleteJob(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

func apply(j *models.Job, opts []store.JobUpdateOption) {
	p := store.CollectUpdate(opts...)
	if p.ErrorMessage != nil {
		j.ErrorMessage = p.ErrorMessage
	}
	if p.ExtractedText != nil {
		j.ExtractedText = p.ExtractedText
	}
	if p.ResultJSON != nil {
		j.ResultJSON = p.ResultJSON
	}
	if p.ResultMarkdown != nil {
		j.ResultMarkdown = p.ResultMarkdown
	}
	if p.ResultPDFPath != nil {
		j.ResultPDFPath = p.ResultPDFPath
	}
	if p.ResultLanguage != nil {
		j.ResultLanguage = p.ResultLanguage
	}
}

var _ store.Store = (*Store)(nil)
