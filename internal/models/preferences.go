package models

// Preferences is the user's scoring/filtering document (spec §4.2), loaded
// from the TOML config's [preferences] table. Unlike Config it carries no
// secrets, so it is safe to hand to the Scorer and RPC surface by value.
type Preferences struct {
	TitleAllowlist []string `toml:"title_allowlist"`
	TitleBlocklist []string `toml:"title_blocklist"`

	KeywordsBoost   []string `toml:"keywords_boost"`
	KeywordsExclude []string `toml:"keywords_exclude"`

	SalaryFloorUSD int `toml:"salary_floor_usd"`

	LocationPreferences LocationPreferences `toml:"location_preferences"`

	ImmediateAlertThreshold float64 `toml:"immediate_alert_threshold"`
}

// LocationPreferences narrows which of a job's remote/hybrid/onsite tag and
// city/state it should be scored favorably for (spec §4.2). An empty Cities
// or States list means "no constraint" rather than "match nothing".
type LocationPreferences struct {
	AllowRemote bool     `toml:"allow_remote"`
	AllowHybrid bool     `toml:"allow_hybrid"`
	AllowOnsite bool     `toml:"allow_onsite"`
	Cities      []string `toml:"cities"`
	States      []string `toml:"states"`
}

// SourcesConfig lists the boards each adapter polls (spec §4.4).
type SourcesConfig struct {
	GreenhouseURLs []string `toml:"greenhouse_urls"`
	LeverURLs      []string `toml:"lever_urls"`

	JobsWithGPT JobsWithGPTConfig `toml:"jobswithgpt"`
}

// JobsWithGPTConfig configures the jobswithgpt.com JSON-RPC adapter.
type JobsWithGPTConfig struct {
	Enabled  bool     `toml:"enabled"`
	Endpoint string   `toml:"endpoint"`
	Queries  []string `toml:"queries"`
}

// NotificationChannel is one configured webhook destination (spec §4.8),
// gated by the filter struct spec §4.2 attaches to each channel.
type NotificationChannel struct {
	Name       string `toml:"name"`
	Kind       string `toml:"kind"` // slack | discord | teams | desktop
	Enabled    bool   `toml:"enabled"`
	WebhookURL string `toml:"webhook_url"`

	ChannelFilter `toml:"filters"`
}

// ChannelFilter is spec §4.2's per-channel predicate set, applied after the
// global immediate_alert_threshold gate and before a notification is sent.
type ChannelFilter struct {
	MinScore         float64  `toml:"min_score"`
	RemoteOnly       bool     `toml:"remote_only"`
	CompanyAllowlist []string `toml:"company_allowlist"`
	CompanyBlocklist []string `toml:"company_blocklist"`
	KeywordInclude   []string `toml:"keyword_include"`
	KeywordExclude   []string `toml:"keyword_exclude"`
}

// ScheduleConfig controls the scheduler's polling cadence (spec §4.9).
type ScheduleConfig struct {
	ScrapingIntervalHours int  `toml:"scraping_interval_hours"`
	AutoRefresh           bool `toml:"auto_refresh"`
	MaxConcurrentSources  int  `toml:"max_concurrent_sources"`
}
