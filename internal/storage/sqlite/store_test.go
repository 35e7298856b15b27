package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/common"
	"github.com/jobsentinel/jobsentinel/internal/models"
)

func setupTestDB(t *testing.T) (*SQLiteDB, func()) {
	tempDir := t.TempDir()
	dbPath := tempDir + "/test.db"

	config := common.SQLiteConfig{
		Path:          dbPath,
		WALMode:       false,
		CacheSizeMB:   8,
		BusyTimeoutMS: 5000,
	}

	logger := arbor.NewLogger()
	db, err := NewSQLiteDB(logger, config)
	require.NoError(t, err)

	return db, func() { db.Close() }
}

func newTestJob(title string) *models.Job {
	return &models.Job{
		Source:   "greenhouse",
		Company:  "Acme",
		Title:    title,
		Location: "Remote",
		URL:      "https://example.com/jobs/1",
		Score:    0.5,
	}
}

func TestUpsert_DedupAndRepost(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())
	ctx := context.Background()

	job := newTestJob("Backend Engineer")

	outcome1, err := store.Upsert(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCreated, outcome1)

	job2 := newTestJob("Backend Engineer")
	outcome2, err := store.Upsert(ctx, job2)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, outcome2)

	stored, err := store.GetByHash(ctx, job.Hash)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RepostCount)

	observations, err := store.RepostObservations(ctx, job.Hash)
	require.NoError(t, err)
	assert.Len(t, observations, 2)
}

func TestUpsert_NeverResetsAlertFlag(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())
	ctx := context.Background()

	job := newTestJob("Staff Engineer")
	_, err := store.Upsert(ctx, job)
	require.NoError(t, err)

	first, err := store.GetByHash(ctx, job.Hash)
	require.NoError(t, err)

	require.NoError(t, store.MarkAlertSent(ctx, first.ID))

	_, err = store.Upsert(ctx, newTestJob("Staff Engineer"))
	require.NoError(t, err)

	stored, err := store.GetByHash(ctx, job.Hash)
	require.NoError(t, err)
	assert.True(t, stored.ImmediateAlertSent)
}

func TestMarkAlertSent_NotFoundForMissingID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())

	err := store.MarkAlertSent(context.Background(), 999)
	assert.Error(t, err)
}

func TestMarkAlertSent_IdempotentOnSecondCall(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())
	ctx := context.Background()

	job := newTestJob("Repeat Alert Engineer")
	_, err := store.Upsert(ctx, job)
	require.NoError(t, err)

	stored, err := store.GetByHash(ctx, job.Hash)
	require.NoError(t, err)

	require.NoError(t, store.MarkAlertSent(ctx, stored.ID))
	require.NoError(t, store.MarkAlertSent(ctx, stored.ID), "marking an already-sent job again must not error")
}

func TestGetByID_RoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())
	ctx := context.Background()

	job := newTestJob("ID Lookup Engineer")
	_, err := store.Upsert(ctx, job)
	require.NoError(t, err)

	byHash, err := store.GetByHash(ctx, job.Hash)
	require.NoError(t, err)

	byID, err := store.GetByID(ctx, byHash.ID)
	require.NoError(t, err)
	assert.Equal(t, byHash.Hash, byID.Hash)
}

func TestGetByID_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())

	_, err := store.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestUpsert_PreservesFirstSeen(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())
	ctx := context.Background()

	job := newTestJob("Platform Engineer")
	_, err := store.Upsert(ctx, job)
	require.NoError(t, err)

	first, err := store.GetByHash(ctx, job.Hash)
	require.NoError(t, err)
	firstSeen := first.FirstSeen

	_, err = store.Upsert(ctx, newTestJob("Platform Engineer"))
	require.NoError(t, err)

	again, err := store.GetByHash(ctx, job.Hash)
	require.NoError(t, err)
	assert.Equal(t, firstSeen.Unix(), again.FirstSeen.Unix())
}

func TestGetByHash_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())

	_, err := store.GetByHash(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestList_FiltersByMinScore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())
	ctx := context.Background()

	low := newTestJob("Low Score Job")
	low.Score = 0.1
	low.URL = "https://example.com/jobs/low"
	_, err := store.Upsert(ctx, low)
	require.NoError(t, err)

	high := newTestJob("High Score Job")
	high.Score = 0.95
	high.URL = "https://example.com/jobs/high"
	_, err = store.Upsert(ctx, high)
	require.NoError(t, err)

	jobs, err := store.List(ctx, ListOptions{MinScore: 0.9})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "High Score Job", jobs[0].Title)
}

func TestStats_CountsBySource(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	store := Open(db, arbor.NewLogger())
	ctx := context.Background()

	_, err := store.Upsert(ctx, newTestJob("Job A"))
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalJobs)
	assert.Equal(t, 1, stats.BySource["greenhouse"])
}
