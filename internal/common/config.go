package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/models"
)

// Config is the root configuration document (spec §4.2).
type Config struct {
	Environment string             `toml:"environment"` // "development" or "production" - controls test-URL acceptance
	DataDir     string             `toml:"data_dir"`
	Server      ServerConfig       `toml:"server"`
	Storage     StorageConfig      `toml:"storage"`
	Logging     LoggingConfig      `toml:"logging"`
	HTTPClient  HTTPClientConfig   `toml:"http_client"`
	Credentials CredentialsConfig  `toml:"credentials"`
	Sources     models.SourcesConfig      `toml:"sources"`
	Preferences models.Preferences        `toml:"preferences"`
	Schedule    models.ScheduleConfig     `toml:"schedule"`
	Ghost       GhostConfig        `toml:"ghost"`
	Notifications []models.NotificationChannel `toml:"notifications"`
	RPC         RPCConfig          `toml:"rpc"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
}

// SQLiteConfig mirrors the teacher's BadgerConfig shape, adapted to the
// single storage technology this system uses (spec §2 Store).
type SQLiteConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
	WALMode        bool   `toml:"wal_mode"`
	CacheSizeMB    int    `toml:"cache_size_mb"`
	BusyTimeoutMS  int    `toml:"busy_timeout_ms"`

	// Environment mirrors Config.Environment so the storage package, which
	// only ever sees *SQLiteConfig, can still refuse reset_on_startup
	// outside development without importing the whole Config.
	Environment string `toml:"-"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// HTTPClientConfig bounds the shared client used by every source adapter
// and webhook dispatch (spec §4.3).
type HTTPClientConfig struct {
	UserAgent         string        `toml:"user_agent"`
	RequestTimeout    time.Duration `toml:"request_timeout"`
	MaxRedirects      int           `toml:"max_redirects"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
}

// CredentialsConfig points at the credential store's backing file (spec
// §4.1).
type CredentialsConfig struct {
	Dir string `toml:"dir"`
}

// GhostConfig tunes the repost/staleness heuristic (spec §4.7).
type GhostConfig struct {
	MinObservationDays  int     `toml:"min_observation_days"`
	RepostWeight        float64 `toml:"repost_weight"`
	LongOpenWeight      float64 `toml:"long_open_weight"`
	ShortDescWeight     float64 `toml:"short_desc_weight"`
}

// RPCConfig configures the local command surface (spec §4.10).
type RPCConfig struct {
	SocketPath string `toml:"socket_path"`
}

// NewDefaultConfig returns the configuration used when no file is present.
// Technical tuning parameters are hardcoded here; only user-facing
// preferences belong in jobsentinel.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		DataDir:     "./data",
		Server: ServerConfig{
			Port: 8642,
			Host: "localhost",
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/jobsentinel.db",
				WALMode:       true,
				CacheSizeMB:   32,
				BusyTimeoutMS: 5000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		HTTPClient: HTTPClientConfig{
			UserAgent:         "JobSentinel/1.0 (+local job search automation)",
			RequestTimeout:    30 * time.Second,
			MaxRedirects:      5,
			RequestsPerSecond: 0.5,
			Burst:             2,
		},
		Credentials: CredentialsConfig{
			Dir: "./credentials",
		},
		Sources: models.SourcesConfig{
			JobsWithGPT: models.JobsWithGPTConfig{Enabled: false},
		},
		Preferences: models.Preferences{
			ImmediateAlertThreshold: 0.9,
		},
		Schedule: models.ScheduleConfig{
			ScrapingIntervalHours: 6,
			AutoRefresh:           true,
			MaxConcurrentSources:  8,
		},
		Ghost: GhostConfig{
			MinObservationDays: 14,
			RepostWeight:       0.4,
			LongOpenWeight:     0.35,
			ShortDescWeight:    0.25,
		},
		RPC: RPCConfig{
			SocketPath: "./data/jobsentinel.sock",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple TOML files, later files
// overriding earlier ones, then applies JOBSENTINEL_* environment overrides
// (highest priority short of CLI flags).
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveToFile validates cfg and atomically replaces the file at path (spec
// §5: "writes go through save(), which atomically replaces the file").
// Same write-tmp-then-rename discipline as internal/credentials.FileStore.
func SaveToFile(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return apperr.Wrap(apperr.KindConfigInvalid, "marshal config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperr.Wrap(apperr.KindConfigInvalid, "create config directory", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return apperr.Wrap(apperr.KindConfigInvalid, "write config temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.Wrap(apperr.KindConfigInvalid, "replace config file", err)
	}
	return nil
}

// applyEnvOverrides applies JOBSENTINEL_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("JOBSENTINEL_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if dataDir := os.Getenv("JOBSENTINEL_DATA_DIR"); dataDir != "" {
		config.DataDir = dataDir
	}

	if port := os.Getenv("JOBSENTINEL_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("JOBSENTINEL_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if sqlitePath := os.Getenv("JOBSENTINEL_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}

	if level := os.Getenv("JOBSENTINEL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("JOBSENTINEL_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("JOBSENTINEL_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range splitString(output, ",") {
			trimmed := trimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if userAgent := os.Getenv("JOBSENTINEL_HTTP_USER_AGENT"); userAgent != "" {
		config.HTTPClient.UserAgent = userAgent
	}
	if timeout := os.Getenv("JOBSENTINEL_HTTP_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			config.HTTPClient.RequestTimeout = t
		}
	}
	if rps := os.Getenv("JOBSENTINEL_HTTP_REQUESTS_PER_SECOND"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			config.HTTPClient.RequestsPerSecond = v
		}
	}

	if credDir := os.Getenv("JOBSENTINEL_CREDENTIALS_DIR"); credDir != "" {
		config.Credentials.Dir = credDir
	}

	if scrapingInterval := os.Getenv("JOBSENTINEL_SCRAPING_INTERVAL_HOURS"); scrapingInterval != "" {
		if h, err := strconv.Atoi(scrapingInterval); err == nil {
			config.Schedule.ScrapingIntervalHours = h
		}
	}
	if maxConcurrent := os.Getenv("JOBSENTINEL_MAX_CONCURRENT_SOURCES"); maxConcurrent != "" {
		if c, err := strconv.Atoi(maxConcurrent); err == nil {
			config.Schedule.MaxConcurrentSources = c
		}
	}

	if socketPath := os.Getenv("JOBSENTINEL_RPC_SOCKET"); socketPath != "" {
		config.RPC.SocketPath = socketPath
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate rejects a configuration that would misbehave at runtime, the
// same defence-in-depth the storage layer applies to individual jobs.
func (c *Config) Validate() error {
	if c.Schedule.ScrapingIntervalHours < 1 {
		return apperr.New(apperr.KindConfigInvalid, "schedule.scraping_interval_hours must be >= 1")
	}
	if c.Schedule.MaxConcurrentSources < 1 {
		return apperr.New(apperr.KindConfigInvalid, "schedule.max_concurrent_sources must be >= 1")
	}
	if c.Preferences.ImmediateAlertThreshold < 0 || c.Preferences.ImmediateAlertThreshold > 1 {
		return apperr.New(apperr.KindConfigInvalid, "preferences.immediate_alert_threshold must be in [0,1]")
	}
	if c.Preferences.SalaryFloorUSD < 0 {
		return apperr.New(apperr.KindConfigInvalid, "preferences.salary_floor_usd must be >= 0")
	}
	for _, ch := range c.Notifications {
		if ch.Kind == "desktop" {
			continue
		}
		if err := ValidateWebhookURLForEnv(ch.Kind, ch.WebhookURL, c.AllowTestURLs()); err != nil {
			return apperr.Wrap(apperr.KindConfigInvalid, fmt.Sprintf("notifications[%s].webhook_url invalid", ch.Name), err)
		}
	}
	return nil
}

// Helper functions for string manipulation (kept dependency-free; these
// predate go-toml's own whitespace handling and stay ASCII-only on purpose).
func splitString(s, sep string) []string {
	result := []string{}
	start := 0
	for i := 0; i < len(s); i++ {
		if i+len(sep) <= len(s) && s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// ValidateSchedule validates an interval-hours value the way the teacher
// validates cron expressions: reject anything that would hammer upstream
// job boards.
func ValidateSchedule(intervalHours int) error {
	if intervalHours < 1 {
		return fmt.Errorf("schedule interval must be at least 1 hour, got %d", intervalHours)
	}
	return nil
}

// ValidateCronExpression is retained for components (e.g. one-off
// diagnostics) that accept a raw cron string rather than an interval.
func ValidateCronExpression(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	parts := strings.Fields(expr)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}
	return nil
}

// SQLite returns the storage config with Environment populated from the
// parent Config, so the storage package's reset_on_startup guard can see it
// without importing *Config.
func (c *Config) SQLite() SQLiteConfig {
	cfg := c.Storage.SQLite
	cfg.Environment = c.Environment
	return cfg
}

// IsProduction reports whether the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// AllowTestURLs reports whether loopback source/webhook URLs are accepted.
// Only true outside production, mirroring the teacher's test-URL gate.
func (c *Config) AllowTestURLs() bool {
	return !c.IsProduction()
}

// DeepCloneConfig returns a deep copy, preventing callers that hold a
// read-only snapshot (e.g. the RPC surface) from observing concurrent
// mutation of a reloaded config.
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = append([]string(nil), c.Logging.Output...)
	}
	if len(c.Sources.GreenhouseURLs) > 0 {
		clone.Sources.GreenhouseURLs = append([]string(nil), c.Sources.GreenhouseURLs...)
	}
	if len(c.Sources.LeverURLs) > 0 {
		clone.Sources.LeverURLs = append([]string(nil), c.Sources.LeverURLs...)
	}
	if len(c.Sources.JobsWithGPT.Queries) > 0 {
		clone.Sources.JobsWithGPT.Queries = append([]string(nil), c.Sources.JobsWithGPT.Queries...)
	}
	if len(c.Preferences.TitleAllowlist) > 0 {
		clone.Preferences.TitleAllowlist = append([]string(nil), c.Preferences.TitleAllowlist...)
	}
	if len(c.Preferences.TitleBlocklist) > 0 {
		clone.Preferences.TitleBlocklist = append([]string(nil), c.Preferences.TitleBlocklist...)
	}
	if len(c.Preferences.KeywordsBoost) > 0 {
		clone.Preferences.KeywordsBoost = append([]string(nil), c.Preferences.KeywordsBoost...)
	}
	if len(c.Preferences.KeywordsExclude) > 0 {
		clone.Preferences.KeywordsExclude = append([]string(nil), c.Preferences.KeywordsExclude...)
	}
	if len(c.Preferences.LocationPreferences.Cities) > 0 {
		clone.Preferences.LocationPreferences.Cities = append([]string(nil), c.Preferences.LocationPreferences.Cities...)
	}
	if len(c.Preferences.LocationPreferences.States) > 0 {
		clone.Preferences.LocationPreferences.States = append([]string(nil), c.Preferences.LocationPreferences.States...)
	}
	if len(c.Notifications) > 0 {
		clone.Notifications = append([]models.NotificationChannel(nil), c.Notifications...)
	}

	return &clone
}
