package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/common"
	"github.com/jobsentinel/jobsentinel/internal/httpclient"
	"github.com/jobsentinel/jobsentinel/internal/models"
	"github.com/jobsentinel/jobsentinel/internal/notify"
)

// fakeStore is an in-memory stand-in for *sqlite.Store, scoped to what the
// scheduler needs.
type fakeStore struct {
	mu     sync.Mutex
	jobs   map[string]*models.Job
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string]*models.Job{}}
}

func (f *fakeStore) Upsert(ctx context.Context, job *models.Job) (models.UpsertOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Normalize()
	if existing, exists := f.jobs[job.Hash]; exists {
		job.ID = existing.ID
		job.RepostCount = existing.RepostCount + 1
		job.ImmediateAlertSent = existing.ImmediateAlertSent
		job.FirstSeen = existing.FirstSeen
		f.jobs[job.Hash] = job
		return models.OutcomeUpdated, nil
	}
	f.nextID++
	job.ID = f.nextID
	f.jobs[job.Hash] = job
	return models.OutcomeCreated, nil
}

func (f *fakeStore) GetByHash(ctx context.Context, hash string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[hash]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "job not found")
	}
	cp := *job
	return &cp, nil
}

func (f *fakeStore) MarkAlertSent(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.ID == id {
			job.ImmediateAlertSent = true
			return nil
		}
	}
	return apperr.New(apperr.KindNotFound, "job not found")
}

func (f *fakeStore) MedianDescriptionLen(ctx context.Context, source string) (int, error) {
	return 0, nil
}

func testScheduler(t *testing.T, store Store) (*Scheduler, *common.Config) {
	cfg := common.NewDefaultConfig()
	cfg.Preferences.ImmediateAlertThreshold = 0.9
	cfg.Notifications = []models.NotificationChannel{
		{Name: "desktop", Kind: "desktop", Enabled: true},
	}
	client := httpclient.New(common.HTTPClientConfig{})
	notifier := notify.New(client, arbor.NewLogger(), true)
	sched := New(func() *common.Config { return cfg }, client, store, notifier, arbor.NewLogger())
	return sched, cfg
}

// newStrongJob builds a job that the default scorer weights will rate well
// above 0.7: remote (with AllowRemote set on the returned config), posted
// now for full recency credit, and no blocklist/exclude-keyword hits.
func newStrongJob(title string) *models.Job {
	now := time.Now().UTC()
	return &models.Job{
		Source:   "greenhouse",
		Company:  "Acme",
		Title:    title,
		Location: "Remote",
		URL:      "https://example.com/jobs/1",
		Remote:   models.RemoteRemote,
		PostedAt: &now,
	}
}

func TestRunOnce_NoSourcesConfigured(t *testing.T) {
	sched, _ := testScheduler(t, newFakeStore())

	err := sched.RunOnce(context.Background())
	require.NoError(t, err)

	status := sched.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Equal(t, 0, status.LastCounts.SourcesRun)
}

func TestRunOnce_RejectsOverlappingCycle(t *testing.T) {
	sched, _ := testScheduler(t, newFakeStore())

	require.True(t, sched.cycleMu.TryLock())
	defer sched.cycleMu.Unlock()

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestProcessJob_DispatchesAlertAboveThreshold(t *testing.T) {
	store := newFakeStore()
	sched, cfg := testScheduler(t, store)
	cfg.Preferences.ImmediateAlertThreshold = 0.7
	cfg.Preferences.LocationPreferences.AllowRemote = true

	job := newStrongJob("Staff Engineer")
	counts := CycleCounts{}
	sched.processJob(context.Background(), cfg, job, &counts)

	assert.Equal(t, 1, counts.JobsUpserted)
	assert.Equal(t, 1, counts.AlertsDispatched)

	stored, err := store.GetByHash(context.Background(), job.Hash)
	require.NoError(t, err)
	assert.True(t, stored.ImmediateAlertSent)
}

func TestProcessJob_SkipsAlertBelowThreshold(t *testing.T) {
	store := newFakeStore()
	sched, cfg := testScheduler(t, store)
	cfg.Preferences.ImmediateAlertThreshold = 0.9
	cfg.Preferences.TitleBlocklist = []string{"junior"}

	job := newStrongJob("Junior Engineer")
	counts := CycleCounts{}
	sched.processJob(context.Background(), cfg, job, &counts)

	assert.Equal(t, 1, counts.JobsUpserted)
	assert.Equal(t, 0, counts.AlertsDispatched)
}

func TestProcessJob_SkipsAlertWhenOnlyChannelFiltersItOut(t *testing.T) {
	store := newFakeStore()
	sched, cfg := testScheduler(t, store)
	cfg.Preferences.ImmediateAlertThreshold = 0.7
	cfg.Preferences.LocationPreferences.AllowRemote = true
	cfg.Notifications = []models.NotificationChannel{
		{Name: "desktop", Kind: "desktop", Enabled: true, ChannelFilter: models.ChannelFilter{MinScore: 0.99}},
	}

	job := newStrongJob("Staff Engineer")
	counts := CycleCounts{}
	sched.processJob(context.Background(), cfg, job, &counts)

	assert.Equal(t, 1, counts.JobsUpserted)
	assert.Equal(t, 0, counts.AlertsDispatched, "no channel actually sent, so no alert should be dispatched")

	stored, err := store.GetByHash(context.Background(), job.Hash)
	require.NoError(t, err)
	assert.False(t, stored.ImmediateAlertSent, "a job filtered out on every channel must not be marked alerted")
}

func TestProcessJob_NeverReAlertsOnRepost(t *testing.T) {
	store := newFakeStore()
	sched, cfg := testScheduler(t, store)
	cfg.Preferences.ImmediateAlertThreshold = 0.7
	cfg.Preferences.LocationPreferences.AllowRemote = true

	first := newStrongJob("Principal Engineer")
	counts := CycleCounts{}
	sched.processJob(context.Background(), cfg, first, &counts)
	require.Equal(t, 1, counts.AlertsDispatched)

	second := newStrongJob("Principal Engineer")
	counts2 := CycleCounts{}
	sched.processJob(context.Background(), cfg, second, &counts2)
	assert.Equal(t, 0, counts2.AlertsDispatched)
}

func TestStartShutdown_Idempotent(t *testing.T) {
	sched, cfg := testScheduler(t, newFakeStore())
	cfg.Schedule.ScrapingIntervalHours = 1

	sched.Start()
	sched.Start() // idempotent, must not spawn a second loop

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sched.Shutdown(ctx))

	assert.Equal(t, StateShutdown, sched.Status().State)
}
