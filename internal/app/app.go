// Package app is JobSentinel's composition root. New wires Config, the
// logger, the SQLite Store, the shared HTTP client, the credential store,
// the Notifier, the Scheduler and the RPC Server into one App, the same
// linear dependency-order construction the teacher's internal/app.App uses
// (database first, then services, then the surface on top).
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/common"
	"github.com/jobsentinel/jobsentinel/internal/credentials"
	"github.com/jobsentinel/jobsentinel/internal/httpclient"
	"github.com/jobsentinel/jobsentinel/internal/notify"
	"github.com/jobsentinel/jobsentinel/internal/rpc"
	"github.com/jobsentinel/jobsentinel/internal/scheduler"
	"github.com/jobsentinel/jobsentinel/internal/storage/sqlite"
)

// shutdownTimeout bounds how long Close waits for an in-flight cycle to
// finish, mirroring the scheduler's own grace period (spec §5: "shutdown
// grace <= 10s") plus a small margin for the store close that follows it.
const shutdownTimeout = 12 * time.Second

// App holds every long-lived component the daemon and the RPC surface
// share.
type App struct {
	Config     *common.Config
	ConfigPath string
	Logger     arbor.ILogger

	Store       *sqlite.Store
	HTTPClient  *httpclient.Client
	Credentials credentials.Store
	Notifier    *notify.Notifier
	Scheduler   *scheduler.Scheduler
	RPC         *rpc.Server
}

// New initializes every component in dependency order: storage, shared
// HTTP client, credentials, notifier, scheduler, then the RPC surface on
// top of all of them.
func New(cfg *common.Config, configPath string, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config:     cfg,
		ConfigPath: configPath,
		Logger:     logger,
	}

	if err := a.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a.HTTPClient = httpclient.Shared(cfg.HTTPClient)

	if err := a.initCredentials(); err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	a.migrateLegacySecrets()

	a.Notifier = notify.New(a.HTTPClient, a.Logger, cfg.AllowTestURLs())

	a.initScheduler()

	a.RPC = rpc.New(cfg, a.ConfigPath, a.Store, a.Scheduler, a.Credentials, a.Logger)

	if cfg.Schedule.AutoRefresh {
		a.Scheduler.Start()
		a.Logger.Info().Msg("scheduler loop started")
	} else {
		a.Logger.Info().Msg("auto_refresh disabled: scheduler loop not started, run_once only")
	}

	a.Logger.Info().
		Str("data_dir", cfg.DataDir).
		Int("scraping_interval_hours", cfg.Schedule.ScrapingIntervalHours).
		Bool("auto_refresh", cfg.Schedule.AutoRefresh).
		Msg("jobsentinel initialization complete")

	return a, nil
}

func (a *App) initStorage() error {
	db, err := sqlite.NewSQLiteDB(a.Logger, a.Config.SQLite())
	if err != nil {
		return err
	}
	a.Store = sqlite.Open(db, a.Logger)
	a.Logger.Info().Str("path", a.Config.Storage.SQLite.Path).Msg("store opened")
	return nil
}

func (a *App) initCredentials() error {
	store, err := credentials.NewFileStore(a.Config.Credentials.Dir)
	if err != nil {
		return err
	}
	a.Credentials = store
	return nil
}

// legacySecretField pairs a credential key with one of the closed set of
// config fields that, in a pre-keyring release, could have held a secret
// directly. migrateLegacySecrets lists them explicitly rather than
// reflecting over the struct, so a future config field is never
// accidentally swept into the credential store.
type legacySecretField struct {
	key   credentials.Key
	value *string
}

// migrateLegacySecrets copies any secret-like value still sitting in the
// loaded config into the credential store and blanks the config field
// (spec §4.1 "first-run migration"). Safe to call on every startup: once
// the field is blank there is nothing left to migrate.
func (a *App) migrateLegacySecrets() {
	fields := []legacySecretField{
		{key: credentials.KeySlackWebhook, value: legacyWebhookField(a.Config, "slack")},
		{key: credentials.KeyDiscordWebhook, value: legacyWebhookField(a.Config, "discord")},
		{key: credentials.KeyTeamsWebhook, value: legacyWebhookField(a.Config, "teams")},
	}
	for _, f := range fields {
		if f.value == nil || *f.value == "" {
			continue
		}
		if err := a.Credentials.StoreSecret(f.key, *f.value); err != nil {
			a.Logger.Warn().Err(err).Str("key", string(f.key)).Msg("legacy secret migration failed")
			continue
		}
		a.Logger.Info().Str("key", string(f.key)).Msg("migrated legacy secret from config to credential store")
		*f.value = ""
	}
}

// legacyWebhookField returns a pointer to the webhook_url field of the
// first notification channel of the given kind still carrying a literal
// value, or nil if none exists. Channels are expected to reference a
// credential key once migrated, not embed the secret inline.
func legacyWebhookField(cfg *common.Config, kind string) *string {
	for i := range cfg.Notifications {
		if cfg.Notifications[i].Kind == kind && cfg.Notifications[i].WebhookURL != "" {
			return &cfg.Notifications[i].WebhookURL
		}
	}
	return nil
}

func (a *App) initScheduler() {
	a.Scheduler = scheduler.New(func() *common.Config {
		return a.RPC.GetConfig()
	}, a.HTTPClient, a.Store, a.Notifier, a.Logger)
}

// Close shuts down the scheduler (within its grace period) and closes the
// store. Safe to call once, at the end of main().
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.Scheduler != nil {
		if err := a.Scheduler.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("scheduler shutdown did not complete cleanly")
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
		a.Logger.Info().Msg("store closed")
	}

	common.Stop()
	return nil
}
