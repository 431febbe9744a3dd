package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhx/labinsight/internal/storage"
	"github.com/usmanhx/labinsight/internal/store/storetest"
	"github.com/usmanhx/labinsight/pkg/models"
)

func TestSweepRemovesExpiredJobs(t *testing.T) {
	base := t.TempDir()
	layout := storage.NewLayout(filepath.Join(base, "uploads"), filepath.Join(base, "outputs"))
	require.NoError(t, layout.Init())
	st := storetest.New()

	expired := &models.Job{
		ID:        uuid.New(),
		JobID:     uuid.NewString(),
		Status:    models.JobStatusCompleted,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	expired.FilePath = layout.UploadPath(expired.JobID, "application/pdf")
	require.NoError(t, os.WriteFile(expired.FilePath, []byte("%PDF-"), 0o644))
	require.NoError(t, os.MkdirAll(layout.ChartsDir(expired.JobID), 0o755))
	require.NoError(t, os.WriteFile(layout.PDFPath(expired.JobID), []byte("%PDF-"), 0o644))
	require.NoError(t, st.CreateJob(context.Background(), expired))

	fresh := &models.Job{
		ID:        uuid.New(),
		JobID:     uuid.NewString(),
		Status:    models.JobStatusCompleted,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, st.CreateJob(context.Background(), fresh))

	s := NewSweeper(st, layout, time.Hour)
	removed := s.Sweep(context.Background())
	assert.Equal(t, 1, removed)

	// Expired job is fully gone: files, outputs, and row.
	_, err := os.Stat(expired.FilePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(layout.OutputDir(expired.JobID))
	assert.True(t, os.IsNotExist(err))
	assert.Nil(t, st.Snapshot(expired.JobID))

	// Fresh job untouched.
	assert.NotNil(t, st.Snapshot(fresh.JobID))
}

func TestSweepNothingExpired(t *testing.T) {
	base := t.TempDir()
	layout := storage.NewLayout(filepath.Join(base, "uploads"), filepath.Join(base, "outputs"))
	require.NoError(t, layout.Init())

	s := NewSweeper(storetest.New(), layout, time.Hour)
	assert.Equal(t, 0, s.Sweep(context.Background()))
}
