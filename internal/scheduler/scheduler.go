// Package scheduler implements the Scheduler (spec §4.9): the component
// that ties source adapters, the Scorer, the Ghost Analyzer, the Store and
// the Notifier into one periodic cycle. Its Idle/Running/Shutdown state
// machine and the global mutex guarding against overlapping cycles are
// adapted from internal/services/scheduler/scheduler_service.go, trimmed
// down from that file's arbitrary named-job registry to the single fixed
// cycle this system runs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/common"
	"github.com/jobsentinel/jobsentinel/internal/ghost"
	"github.com/jobsentinel/jobsentinel/internal/httpclient"
	"github.com/jobsentinel/jobsentinel/internal/models"
	"github.com/jobsentinel/jobsentinel/internal/notify"
	"github.com/jobsentinel/jobsentinel/internal/scoring"
	"github.com/jobsentinel/jobsentinel/internal/sources"
	"github.com/jobsentinel/jobsentinel/internal/storage/sqlite"
)

// State is the scheduler's run state (spec §4.9).
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateShutdown State = "shutdown"
)

// shutdownGrace bounds how long Shutdown waits for an in-flight cycle to
// finish its current adapter before returning anyway (spec §5: "shutdown
// grace <= 10s").
const shutdownGrace = 10 * time.Second

// Status is the snapshot returned to the RPC surface's get_scraping_status
// command (spec §4.10).
type Status struct {
	State             State
	LastCycleStarted  *time.Time
	LastCycleFinished *time.Time
	LastError         string
	LastCounts        CycleCounts
}

// CycleCounts summarizes one cycle's outcome.
type CycleCounts struct {
	SourcesRun      int
	SourceFailures  int
	JobsFetched     int
	JobsUpserted    int
	AlertsDispatched int
}

// Store is the subset of *sqlite.Store the scheduler drives.
type Store interface {
	Upsert(ctx context.Context, job *models.Job) (models.UpsertOutcome, error)
	GetByHash(ctx context.Context, hash string) (*models.Job, error)
	MarkAlertSent(ctx context.Context, id int64) error
	MedianDescriptionLen(ctx context.Context, source string) (int, error)
}

var _ Store = (*sqlite.Store)(nil)

// Scheduler drives the periodic scrape-score-store-notify cycle.
type Scheduler struct {
	configFn func() *common.Config
	client   *httpclient.Client
	store    Store
	notifier *notify.Notifier
	logger   arbor.ILogger

	cycleMu sync.Mutex // serializes cycles, same role as the teacher's globalMu

	mu           sync.Mutex // guards the fields below
	state        State
	lastStarted  *time.Time
	lastFinished *time.Time
	lastErr      error
	lastCounts   CycleCounts

	cancel   context.CancelFunc
	loopDone chan struct{}
}

// New builds a Scheduler. configFn is called fresh at the start of every
// cycle so a reloaded config (spec §4.10 save_config) takes effect on the
// next run without restarting the process.
func New(configFn func() *common.Config, client *httpclient.Client, store Store, notifier *notify.Notifier, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		configFn: configFn,
		client:   client,
		store:    store,
		notifier: notifier,
		logger:   logger,
		state:    StateIdle,
	}
}

// Start launches the periodic loop. Idempotent: calling it again while
// already running or after Shutdown is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state != StateIdle || s.loopDone != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	common.SafeGo(s.logger, "scheduler.loop", func() { s.loop(ctx) })
}

// loop sleeps for the configured interval between cycles, waking early
// only on cancellation (spec §4.9 step 5: "cooperative wait, never busy
// loop").
func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)

	for {
		if err := s.RunOnce(ctx); err != nil && !apperr.Is(err, apperr.KindCancelled) {
			s.logger.Warn().Err(err).Msg("scheduled cycle ended with error")
		}

		interval := time.Duration(s.configFn().Schedule.ScrapingIntervalHours) * time.Hour
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.state = StateShutdown
			s.mu.Unlock()
			return
		case <-time.After(interval):
		}
	}
}

// RunOnce runs a single cycle synchronously. Safe to call from the RPC
// surface's run_once command while the periodic loop is also active: the
// two share cycleMu, so a manual trigger either runs immediately (loop
// idle) or is rejected while one is already in flight, the same
// skip-if-processing discipline the teacher's runScheduledTask uses.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.cycleMu.TryLock() {
		return apperr.New(apperr.KindInternal, "a cycle is already running")
	}
	defer s.cycleMu.Unlock()

	s.mu.Lock()
	if s.state == StateShutdown {
		s.mu.Unlock()
		return apperr.New(apperr.KindCancelled, "scheduler is shut down")
	}
	started := time.Now().UTC()
	s.state = StateRunning
	s.lastStarted = &started
	s.mu.Unlock()

	counts, err := s.runCycle(ctx)

	finished := time.Now().UTC()
	s.mu.Lock()
	if s.state != StateShutdown {
		s.state = StateIdle
	}
	s.lastFinished = &finished
	s.lastCounts = counts
	s.lastErr = err
	s.mu.Unlock()

	return err
}

// runCycle implements spec §4.9's five steps except the final sleep, which
// the caller (loop) owns.
func (s *Scheduler) runCycle(ctx context.Context) (CycleCounts, error) {
	cfg := s.configFn()
	counts := CycleCounts{}

	// Step 1+2: snapshot enabled sources and fan them out with bounded
	// concurrency, isolating each adapter's failure from its siblings.
	adapters := sources.BuildAll(cfg.Sources, s.client, s.logger)
	counts.SourcesRun = len(adapters)

	maxConcurrent := cfg.Schedule.MaxConcurrentSources
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	sem := make(chan struct{}, maxConcurrent)

	type fetchResult struct {
		jobs []*models.Job
		err  error
	}
	results := make([]fetchResult, len(adapters))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		if ctx.Err() != nil {
			results[i] = fetchResult{err: apperr.Wrap(apperr.KindCancelled, "cycle cancelled", ctx.Err())}
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		i, adapter := i, adapter
		common.SafeGo(s.logger, "scheduler.fetch."+adapter.Name(), func() {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				results[i] = fetchResult{err: apperr.Wrap(apperr.KindCancelled, "cycle cancelled", ctx.Err())}
				return
			}
			jobs, err := adapter.Fetch(ctx)
			if err != nil {
				results[i] = fetchResult{err: apperr.SourceFailed(adapter.Name(), err)}
				return
			}
			results[i] = fetchResult{jobs: jobs}
		})
	}
	wg.Wait()

	var fetchErrs []error
	for _, r := range results {
		if r.err != nil {
			fetchErrs = append(fetchErrs, r.err)
			counts.SourceFailures++
			s.logger.Warn().Err(r.err).Msg("source adapter failed")
			continue
		}
		counts.JobsFetched += len(r.jobs)
	}

	// Step 3+4: score, ghost-analyze, persist, and alert per job.
	for _, r := range results {
		for _, job := range r.jobs {
			if ctx.Err() != nil {
				return counts, apperr.Wrap(apperr.KindCancelled, "cycle cancelled", ctx.Err())
			}
			s.processJob(ctx, cfg, job, &counts)
		}
	}

	if len(fetchErrs) > 0 && len(fetchErrs) == len(adapters) && len(adapters) > 0 {
		return counts, apperr.New(apperr.KindSourceFailed, "all source adapters failed this cycle")
	}
	return counts, nil
}

// processJob scores, ghost-analyzes, upserts and, when warranted, alerts on
// one fetched job. Errors are logged and swallowed so one bad job never
// aborts the rest of the cycle.
func (s *Scheduler) processJob(ctx context.Context, cfg *common.Config, job *models.Job, counts *CycleCounts) {
	score, reasons := scoring.Score(job, cfg.Preferences, s.logger)
	job.Score = score
	job.ScoreReasons = reasons

	medianLen, err := s.store.MedianDescriptionLen(ctx, job.Source)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", job.Source).Msg("median description length lookup failed")
	}
	ghostCfg := ghost.Config{
		MinObservationDays: cfg.Ghost.MinObservationDays,
		RepostWeight:       cfg.Ghost.RepostWeight,
		LongOpenWeight:     cfg.Ghost.LongOpenWeight,
		ShortDescWeight:    cfg.Ghost.ShortDescWeight,
	}
	ghostScore, ghostReasons := ghost.Analyze(job, ghost.Stats{MedianDescriptionLen: medianLen}, ghostCfg)
	job.GhostScore = ghostScore
	job.GhostReasons = ghostReasons

	if _, err := s.store.Upsert(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("hash", job.Hash).Msg("upsert failed")
		return
	}
	counts.JobsUpserted++

	stored, err := s.store.GetByHash(ctx, job.Hash)
	if err != nil {
		s.logger.Error().Err(err).Str("hash", job.Hash).Msg("post-upsert lookup failed")
		return
	}

	if stored.Score < cfg.Preferences.ImmediateAlertThreshold || stored.ImmediateAlertSent {
		return
	}

	outcomes := s.notifier.Notify(ctx, stored, cfg.Notifications)
	var anySent bool
	for _, o := range outcomes {
		if o.Sent {
			anySent = true
			break
		}
	}
	if !anySent {
		return
	}
	counts.AlertsDispatched++
	if err := s.store.MarkAlertSent(ctx, stored.ID); err != nil {
		s.logger.Warn().Err(err).Str("hash", stored.Hash).Msg("failed to persist alert-sent flag")
	}
}

// Shutdown cancels the running loop and waits up to shutdownGrace for the
// in-flight cycle (if any) to finish its current adapter and return.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.loopDone
	s.state = StateShutdown
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-time.After(shutdownGrace):
		return apperr.New(apperr.KindInternal, "shutdown grace period exceeded")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the scheduler's current state for the RPC surface.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr string
	if s.lastErr != nil {
		lastErr = s.lastErr.Error()
	}
	return Status{
		State:             s.state,
		LastCycleStarted:  s.lastStarted,
		LastCycleFinished: s.lastFinished,
		LastError:         lastErr,
		LastCounts:        s.lastCounts,
	}
}
