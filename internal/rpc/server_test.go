package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/common"
	"github.com/jobsentinel/jobsentinel/internal/credentials"
	"github.com/jobsentinel/jobsentinel/internal/httpclient"
	"github.com/jobsentinel/jobsentinel/internal/models"
	"github.com/jobsentinel/jobsentinel/internal/notify"
	"github.com/jobsentinel/jobsentinel/internal/scheduler"
	"github.com/jobsentinel/jobsentinel/internal/storage/sqlite"
)

func testServer(t *testing.T) *Server {
	dir := t.TempDir()
	logger := arbor.NewLogger()

	dbCfg := common.SQLiteConfig{Path: filepath.Join(dir, "test.db"), WALMode: false, CacheSizeMB: 8, BusyTimeoutMS: 5000}
	db, err := sqlite.NewSQLiteDB(logger, dbCfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := sqlite.Open(db, logger)

	cfg := common.NewDefaultConfig()
	cfg.Preferences.ImmediateAlertThreshold = 0.9

	client := httpclient.New(common.HTTPClientConfig{})
	notifier := notify.New(client, logger, true)
	var srv *Server
	sched := scheduler.New(func() *common.Config { return srv.GetConfig() }, client, store, notifier, logger)

	creds, err := credentials.NewFileStore(filepath.Join(dir, "credentials"))
	require.NoError(t, err)

	srv = New(cfg, filepath.Join(dir, "config.toml"), store, sched, creds, logger)
	return srv
}

func TestIsFirstRun_TrueUntilSetupComplete(t *testing.T) {
	srv := testServer(t)
	assert.True(t, srv.IsFirstRun())

	require.NoError(t, srv.CompleteSetup(CompleteSetupRequest{Config: srv.GetConfig()}))
	assert.False(t, srv.IsFirstRun())
}

func TestSaveConfig_RejectsInvalid(t *testing.T) {
	srv := testServer(t)
	bad := srv.GetConfig()
	bad.Schedule.ScrapingIntervalHours = 0

	err := srv.SaveConfig(SaveConfigRequest{Config: bad})
	assert.Error(t, err)
}

func TestSaveConfig_SwapsInMemoryHandle(t *testing.T) {
	srv := testServer(t)
	updated := srv.GetConfig()
	updated.Preferences.SalaryFloorUSD = 150000

	require.NoError(t, srv.SaveConfig(SaveConfigRequest{Config: updated}))
	assert.Equal(t, 150000, srv.GetConfig().Preferences.SalaryFloorUSD)
}

func TestValidateWebhook_MatchesScenario3(t *testing.T) {
	srv := testServer(t)

	err := srv.ValidateWebhook(ValidateWebhookRequest{
		URL: "https://hooks.slack.com.evil.com/services/A/B/C", Channel: "slack",
	})
	assert.Error(t, err)

	err = srv.ValidateWebhook(ValidateWebhookRequest{
		URL: "https://evil.com/?u=https://hooks.slack.com/services/A/B/C", Channel: "slack",
	})
	assert.Error(t, err)

	err = srv.ValidateWebhook(ValidateWebhookRequest{
		URL: "https://hooks.slack.com/services/T/B/X", Channel: "slack",
	})
	assert.NoError(t, err)
}

func TestCredentialRoundTrip(t *testing.T) {
	srv := testServer(t)

	has, err := srv.HasCredential(HasCredentialRequest{Key: credentials.KeySlackWebhook})
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, srv.StoreCredential(StoreCredentialRequest{Key: credentials.KeySlackWebhook, Value: "secret"}))

	ok, err := srv.RetrieveCredential(RetrieveCredentialRequest{Key: credentials.KeySlackWebhook})
	require.NoError(t, err)
	assert.True(t, ok)

	status, err := srv.GetCredentialStatus()
	require.NoError(t, err)
	assert.True(t, status[credentials.KeySlackWebhook])
	assert.False(t, status[credentials.KeyTeamsWebhook])

	require.NoError(t, srv.DeleteCredential(DeleteCredentialRequest{Key: credentials.KeySlackWebhook}))
	has, err = srv.HasCredential(HasCredentialRequest{Key: credentials.KeySlackWebhook})
	require.NoError(t, err)
	assert.False(t, has)
}

// TestRunOnce_NoSourcesConfiguredYieldsNoJobs covers the degenerate case:
// run_once against a config with zero sources completes cleanly and
// persists nothing.
func TestRunOnce_NoSourcesConfiguredYieldsNoJobs(t *testing.T) {
	srv := testServer(t)
	ctx := context.Background()

	require.NoError(t, srv.RunOnce(ctx))
	status := srv.GetScrapingStatus()
	assert.Equal(t, scheduler.StateIdle, status.State)
	assert.Equal(t, 0, status.LastCounts.SourcesRun)

	jobs, err := srv.GetRecentJobs(ctx, GetRecentJobsRequest{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, jobs, 0)
}

// greenhouseBoardHTML is a minimal Greenhouse board page matching the
// adapter's "div.opening" selector, enough to drive one job through
// run_once end to end without touching the real network.
const greenhouseBoardHTML = `<html><body>
<div class="opening">
  <a href="/jobs/1">Staff Platform Engineer</a>
  <span class="location">Remote</span>
</div>
</body></html>`

// TestRunOnce_ThresholdGating is spec §8 scenario 2: a job fetched from a
// configured source and scored above immediate_alert_threshold is
// upserted and alerted exactly once; a second identical cycle must not
// re-alert the same job.
func TestRunOnce_ThresholdGating(t *testing.T) {
	board := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(greenhouseBoardHTML))
	}))
	defer board.Close()

	srv := testServer(t)
	ctx := context.Background()

	cfg := srv.GetConfig()
	cfg.Sources.GreenhouseURLs = []string{board.URL}
	cfg.Preferences.ImmediateAlertThreshold = 0.7
	cfg.Preferences.LocationPreferences.AllowRemote = true
	cfg.Notifications = []models.NotificationChannel{
		{Name: "desktop", Kind: "desktop", Enabled: true},
	}
	require.NoError(t, srv.SaveConfig(SaveConfigRequest{Config: cfg}))

	require.NoError(t, srv.RunOnce(ctx))
	status := srv.GetScrapingStatus()
	assert.Equal(t, 1, status.LastCounts.SourcesRun)
	assert.Equal(t, 1, status.LastCounts.JobsUpserted)
	assert.Equal(t, 1, status.LastCounts.AlertsDispatched)

	jobs, err := srv.GetRecentJobs(ctx, GetRecentJobsRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.GreaterOrEqual(t, jobs[0].Score, 0.7)
	assert.True(t, jobs[0].ImmediateAlertSent)

	// A second identical cycle re-observes the same job (repost) but must
	// not alert again: immediate_alert_sent is write-once (spec §3).
	require.NoError(t, srv.RunOnce(ctx))
	status = srv.GetScrapingStatus()
	assert.Equal(t, 0, status.LastCounts.AlertsDispatched)
}

func TestGetJobByID_NotFound(t *testing.T) {
	srv := testServer(t)
	_, err := srv.GetJobByID(context.Background(), GetJobByIDRequest{ID: 999})
	assert.Error(t, err)
}

func TestGetStatistics_EmptyStore(t *testing.T) {
	srv := testServer(t)
	stats, err := srv.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalJobs)
}

func TestGetGhostStatistics_EmptyStore(t *testing.T) {
	srv := testServer(t)
	stats, err := srv.GetGhostStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.GhostCount)
	assert.Equal(t, 0.0, stats.AvgGhostScore)
}

var _ = models.Job{}
