// Package rpc implements the RPC Surface (spec §4.10): a typed in-process
// command dispatcher the GUI shell talks to directly, not a network
// server. Every command is its own method with an explicit request and
// response struct and an *apperr.Error on failure, grounded on the
// teacher's cmd/quaero-test-runner pattern of a small driver calling
// straight through the service layer rather than re-implementing logic —
// here the "driver" is whatever embeds Server (cmd/jobsentinelctl or a GUI
// binding layer).
package rpc

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/common"
	"github.com/jobsentinel/jobsentinel/internal/credentials"
	"github.com/jobsentinel/jobsentinel/internal/scheduler"
	"github.com/jobsentinel/jobsentinel/internal/storage/sqlite"
)

const setupMarkerFile = ".setup_complete"

// Server holds every component the RPC commands dispatch into. Config is
// shared read-only; Save swaps it under configMu (spec §5 "in-memory
// handle is swapped under a mutex").
type Server struct {
	configMu   sync.RWMutex
	config     *common.Config
	configPath string

	store       *sqlite.Store
	scheduler   *scheduler.Scheduler
	credentials credentials.Store
	logger      arbor.ILogger
}

// New builds a Server. configPath is where save_config/complete_setup
// persist, and where the first-run marker file is checked/written
// alongside.
func New(cfg *common.Config, configPath string, store *sqlite.Store, sched *scheduler.Scheduler, creds credentials.Store, logger arbor.ILogger) *Server {
	return &Server{
		config:      cfg,
		configPath:  configPath,
		store:       store,
		scheduler:   sched,
		credentials: creds,
		logger:      logger,
	}
}

// currentConfig returns a deep clone, so a caller holding it never
// observes a concurrent save_config.
func (s *Server) currentConfig() *common.Config {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return common.DeepCloneConfig(s.config)
}

// GetConfig returns the active configuration (spec §4.10 get_config).
func (s *Server) GetConfig() *common.Config {
	return s.currentConfig()
}

// SaveConfigRequest is save_config's input.
type SaveConfigRequest struct {
	Config *common.Config
}

// SaveConfig validates req.Config, atomically persists it, and swaps the
// in-memory handle (spec §4.10 save_config, spec §5 save()).
func (s *Server) SaveConfig(req SaveConfigRequest) error {
	if req.Config == nil {
		return apperr.New(apperr.KindConfigInvalid, "config is nil")
	}
	if err := req.Config.Validate(); err != nil {
		return err
	}
	if s.configPath != "" {
		if err := common.SaveToFile(req.Config, s.configPath); err != nil {
			return err
		}
	}

	s.configMu.Lock()
	s.config = req.Config
	s.configMu.Unlock()
	return nil
}

// ValidateWebhookRequest is validate_webhook's input.
type ValidateWebhookRequest struct {
	URL     string
	Channel string // "slack" | "discord" | "teams"
}

// ValidateWebhook checks url against channel's provider allowlist (spec
// §4.10 validate_webhook, spec §8 scenario 3).
func (s *Server) ValidateWebhook(req ValidateWebhookRequest) error {
	cfg := s.currentConfig()
	return common.ValidateWebhookURLForEnv(req.Channel, req.URL, cfg.AllowTestURLs())
}

// IsFirstRun reports whether complete_setup has never been called (spec
// §4.10 is_first_run). Tracked with a marker file next to the config
// rather than a config field, so the wizard flag survives a config file
// the user hand-edited before ever completing setup.
func (s *Server) IsFirstRun() bool {
	if s.configPath == "" {
		return true
	}
	_, err := os.Stat(s.markerPath())
	return os.IsNotExist(err)
}

func (s *Server) markerPath() string {
	return filepath.Join(filepath.Dir(s.configPath), setupMarkerFile)
}

// CompleteSetupRequest is complete_setup's input: the wizard's final
// configuration.
type CompleteSetupRequest struct {
	Config *common.Config
}

// CompleteSetup saves req.Config and marks first-run onboarding done
// (spec §4.10 complete_setup).
func (s *Server) CompleteSetup(req CompleteSetupRequest) error {
	if err := s.SaveConfig(SaveConfigRequest{Config: req.Config}); err != nil {
		return err
	}
	if s.configPath == "" {
		return nil
	}
	if err := os.WriteFile(s.markerPath(), []byte("1"), 0600); err != nil {
		return apperr.Wrap(apperr.KindInternal, "write setup marker", err)
	}
	return nil
}

// RunOnce triggers a synchronous cycle (spec §4.10 run_once, spec §4.9
// run_once()).
func (s *Server) RunOnce(ctx context.Context) error {
	return s.scheduler.RunOnce(ctx)
}

// GetScrapingStatus reports the scheduler's state (spec §4.10
// get_scraping_status).
func (s *Server) GetScrapingStatus() scheduler.Status {
	return s.scheduler.Status()
}
