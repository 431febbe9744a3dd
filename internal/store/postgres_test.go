package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/usmanhx/labinsight/internal/store"
	"github.com/usmanhx/labinsight/pkg/models"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("labinsight_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func newJob() *models.Job {
	now := time.Now().UTC().Truncate(time.Microsecond)
	age := 35
	ip := "203.0.113.7"
	return &models.Job{
		ID:             uuid.New(),
		JobID:          uuid.NewString(),
		Status:         models.JobStatusPending,
		FilePath:       "/storage/uploads/test.pdf",
		FileType:       "application/pdf",
		Age:            &age,
		SourceLanguage: "en",
		OutputLanguage: "ur",
		Source:         models.JobSourceWeb,
		ClientIP:       &ip,
		ExpiresAt:      now.Add(48 * time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestJob_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	job := newJob()
	require.NoError(t, s.CreateJob(ctx, job))

	got, err := s.GetJobByJobID(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, "application/pdf", got.FileType)
	require.NotNil(t, got.Age)
	assert.Equal(t, 35, *got.Age)
	assert.Equal(t, "ur", got.OutputLanguage)
	assert.Nil(t, got.ResultMarkdown)
}

func TestJob_GetUnknown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))

	_, err := s.GetJobByJobID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJob_StatusTransitions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	job := newJob()
	require.NoError(t, s.CreateJob(ctx, job))

	// pending cannot jump straight to completed
	err := s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing))

	// a second claim of the same job loses the guarded update
	err = s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusCompleted,
		store.WithResultMarkdown("# Report"),
		store.WithResultLanguage("ur"),
	))

	got, err := s.GetJobByJobID(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.ResultMarkdown)
	assert.Equal(t, "# Report", *got.ResultMarkdown)
	require.NotNil(t, got.ResultLanguage)
	assert.Equal(t, "ur", *got.ResultLanguage)

	// completed is terminal
	err = s.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestJob_SaveArtifactsKeepsStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	job := newJob()
	require.NoError(t, s.CreateJob(ctx, job))
	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, models.JobStatusProcessing))

	require.NoError(t, s.SaveJobArtifacts(ctx, job.ID,
		store.WithExtractedText("Hemoglobin 11.2 g/dL"),
		store.WithResultJSON(`{"summary":"..."}`),
	))

	got, err := s.GetJobByJobID(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
	require.NotNil(t, got.ExtractedText)
	assert.Equal(t, "Hemoglobin 11.2 g/dL", *got.ExtractedText)
	require.NotNil(t, got.ResultJSON)

	err = s.SaveJobArtifacts(ctx, uuid.New(), store.WithExtractedText("x"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJob_ListExpiredAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	ctx := context.Background()

	expired := newJob()
	expired.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	fresh := newJob()
	require.NoError(t, s.CreateJob(ctx, expired))
	require.NoError(t, s.CreateJob(ctx, fresh))

	jobs, err := s.ListExpiredJobs(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, expired.JobID, jobs[0].JobID)

	require.NoError(t, s.DeleteJob(ctx, expired.ID))
	_, err = s.GetJobByJobID(ctx, expired.JobID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.DeleteJob(ctx, expired.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
