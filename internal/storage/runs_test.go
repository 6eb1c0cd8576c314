package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redcapprep/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_MigrationsAreRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Close())
}

func TestRunStore_CreateAndGet(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	run := &domain.BatchRun{
		Kind:       domain.BatchRemap,
		Trigger:    "manual",
		SourceDir:  "/srv/study/data",
		OutputDir:  "/srv/study/out",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Processed:  1,
		Skipped:    1,
		Warnings:   []string{"dictionary directory missing"},
	}
	files := []domain.BatchFile{
		{SourceFile: "APS_visit1.csv", Template: "APS_visit1_dd.csv", FormID: "form_3",
			Outputs: []string{"/srv/study/out/APS_visit1_redcap_processed.csv"},
			Status:  domain.FileProcessed, Rows: 12},
		{SourceFile: "other.csv", Status: domain.FileSkipped},
	}
	require.NoError(t, store.CreateRun(run, files))
	require.NotEmpty(t, run.ID)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchRemap, got.Kind)
	assert.Equal(t, "/srv/study/data", got.SourceDir)
	assert.Equal(t, 1, got.Processed)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, []string{"dictionary directory missing"}, got.Warnings)
	assert.WithinDuration(t, started, got.StartedAt, time.Second)

	stored, err := store.ListFiles(run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "APS_visit1.csv", stored[0].SourceFile)
	assert.Equal(t, "form_3", stored[0].FormID)
	assert.Equal(t, files[0].Outputs, stored[0].Outputs)
	assert.Equal(t, 12, stored[0].Rows)
	assert.Equal(t, domain.FileSkipped, stored[1].Status)
	assert.Empty(t, stored[1].Outputs)
	assert.Equal(t, run.ID, stored[1].RunID)
}

func TestRunStore_GetMissing(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	_, err := store.GetRun("nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRunStore_ListRunsNewestFirst(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		run := &domain.BatchRun{Kind: domain.BatchTemplates, Trigger: "manual", StartedAt: at, FinishedAt: at, Processed: i}
		require.NoError(t, store.CreateRun(run, nil))
	}

	runs, err := store.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].Processed)
	assert.Equal(t, 1, runs[1].Processed)

	all, err := store.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
