package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/reviewharvest/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "reviewharvest"

	// DefaultTargetsFile is the target list read when none is given.
	DefaultTargetsFile = "links.txt"

	// DefaultPageSize is the page size hint sent with every fetch.
	DefaultPageSize = 20000

	// DefaultFlushThreshold is the buffer size that forces a merge and ends
	// the partition.
	DefaultFlushThreshold = 100000

	// DefaultEmptyStreakLimit is the number of consecutive empty fetches
	// after which a partition is considered exhausted.
	DefaultEmptyStreakLimit = 10

	// DefaultEmptyPause is the wait after an empty fetch.
	DefaultEmptyPause = 30 * time.Second

	// DefaultErrorCooldown is the wait after a failed fetch before the
	// partition is abandoned.
	DefaultErrorCooldown = 300 * time.Second

	// DefaultMergeAttempts is how many times a dataset merge is tried.
	DefaultMergeAttempts = 2

	// DefaultConcurrency is the number of targets harvested in parallel.
	DefaultConcurrency = 1

	// DefaultSourceTimeout bounds a single remote call.
	DefaultSourceTimeout = 120 * time.Second

	// DefaultRequestsPerSecond paces calls made through one identity.
	DefaultRequestsPerSecond = 1.0

	// DefaultBurst is the rate limiter burst per identity.
	DefaultBurst = 1

	// DefaultUserAgent identifies reviewharvest in HTTP requests.
	DefaultUserAgent = "reviewharvest/1.0 (+https://github.com/nao1215/reviewharvest)"

	// DefaultTorStartupTimeout is the maximum time to wait for an embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultTranslationLanguage is the language translated copies are
	// written in.
	DefaultTranslationLanguage = "ru"

	// DefaultTranslationModel is the chat model used for translation.
	DefaultTranslationModel = "gpt-4o-mini"

	// DefaultTranslationTimeout bounds a single translation call.
	DefaultTranslationTimeout = 30 * time.Second

	// DefaultTranslationCacheTTL is how long identical texts reuse a
	// translation.
	DefaultTranslationCacheTTL = 24 * time.Hour

	// DefaultTranslationProgressEvery is how often enrichment progress is
	// logged, in records.
	DefaultTranslationProgressEvery = 1000

	// DefaultMockPages is the number of non-empty pages the mock source
	// serves per partition.
	DefaultMockPages = 3

	// DefaultMockPageSize is the number of reviews per mock page.
	DefaultMockPageSize = 20
)

// Source modes.
const (
	SourceModeHTTP = "http"
	SourceModeMock = "mock"
)

// Identity modes.
const (
	IdentityModeTor     = "tor"
	IdentityModeSOCKS   = "socks"
	IdentityModeCommand = "command"
	IdentityModeDirect  = "direct"
)

// Rotation scopes: how long one network identity is held.
const (
	RotatePerLevel     = "level"
	RotatePerPartition = "partition"
	RotatePerRun       = "run"
)

// Abandon policies: what happens to buffered records when a fetch fails.
const (
	AbandonDiscard = "discard"
	AbandonFlush   = "flush"
)

// Report formats.
const (
	ReportMarkdown = "markdown"
	ReportJSON     = "json"
	ReportText     = "text"
)

// Translation providers.
const (
	TranslationOpenAI = "openai"
	TranslationNone   = "none"
)

// Config holds every option of a harvest run. It is built once in the CLI
// and passed down explicitly; no package reads global configuration.
type Config struct {
	// TargetsFile is the list of application identifiers, one per line.
	TargetsFile string `yaml:"targets_file"`

	// CatalogFile is the language/region catalog. Empty means the built-in
	// single-entry catalog (en/us).
	CatalogFile string `yaml:"catalog_file"`

	// DataDir holds one SQLite file per dataset.
	// Defaults to the XDG data directory.
	DataDir string `yaml:"data_dir"`

	// ReportFile receives the run report. Empty means stdout.
	ReportFile string `yaml:"report_file"`

	// ReportFormat is one of markdown, json or text.
	ReportFormat string `yaml:"report_format"`

	// LogFile receives an INFO level copy of the log. Empty disables it.
	LogFile string `yaml:"log_file"`

	// Concurrency is the number of targets harvested in parallel.
	// Each worker holds its own network identity.
	Concurrency int `yaml:"concurrency"`

	// Levels lists the severity levels to harvest, in order.
	Levels []int `yaml:"levels"`

	Harvest     HarvestConfig     `yaml:"harvest"`
	Source      SourceConfig      `yaml:"source"`
	Identity    IdentityConfig    `yaml:"identity"`
	Translation TranslationConfig `yaml:"translation"`

	// Verbose enables debug logging. Set from the command line only.
	Verbose bool `yaml:"-"`

	// ConfigFilePath is the file the configuration was loaded from.
	ConfigFilePath string `yaml:"-"`
}

// HarvestConfig holds the partition state machine thresholds.
type HarvestConfig struct {
	PageSize         int           `yaml:"page_size"`
	FlushThreshold   int           `yaml:"flush_threshold"`
	EmptyStreakLimit int           `yaml:"empty_streak_limit"`
	EmptyPause       time.Duration `yaml:"empty_pause"`
	ErrorCooldown    time.Duration `yaml:"error_cooldown"`

	// AbandonPolicy is discard (drop buffered records) or flush (merge them
	// before abandoning).
	AbandonPolicy string `yaml:"abandon_policy"`

	// MergeAttempts is how many times a failed merge is tried in total.
	MergeAttempts int `yaml:"merge_attempts"`
}

// SourceConfig describes the remote review source.
type SourceConfig struct {
	// Mode is http (JSON gateway) or mock (synthetic data for dry runs).
	Mode string `yaml:"mode"`

	// BaseURL is the gateway root, e.g. "http://127.0.0.1:8080".
	BaseURL string `yaml:"base_url"`

	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`

	// MockPages and MockPageSize shape the mock source output.
	MockPages    int `yaml:"mock_pages"`
	MockPageSize int `yaml:"mock_page_size"`
}

// IdentityConfig describes how network identities are acquired and rotated.
type IdentityConfig struct {
	// Mode is tor, socks, command or direct.
	Mode string `yaml:"mode"`

	// RotatePer is level, partition or run.
	RotatePer string `yaml:"rotate_per"`

	// TorStartupTimeout bounds embedded Tor bootstrap (mode tor).
	TorStartupTimeout time.Duration `yaml:"tor_startup_timeout"`

	// Proxies is the SOCKS5 pool used round robin (mode socks).
	Proxies []string `yaml:"proxies"`

	// UpCommand and DownCommand bring a tunnel up and down (mode command),
	// e.g. ["wg-quick", "up", "wg0"].
	UpCommand   []string `yaml:"up_command"`
	DownCommand []string `yaml:"down_command"`

	// SettleDelay is waited after UpCommand succeeds.
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// TranslationConfig controls the enrichment pass.
type TranslationConfig struct {
	Enabled bool `yaml:"enabled"`

	// Provider is openai or none.
	Provider string `yaml:"provider"`

	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`

	// APIKey is usually supplied through OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`

	TargetLanguage string        `yaml:"target_language"`
	Timeout        time.Duration `yaml:"timeout"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	ProgressEvery  int           `yaml:"progress_every"`
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		TargetsFile:  DefaultTargetsFile,
		DataDir:      XDGDataDir(),
		ReportFormat: ReportMarkdown,
		Concurrency:  DefaultConcurrency,
		Levels:       defaultLevels(),
		Harvest: HarvestConfig{
			PageSize:         DefaultPageSize,
			FlushThreshold:   DefaultFlushThreshold,
			EmptyStreakLimit: DefaultEmptyStreakLimit,
			EmptyPause:       DefaultEmptyPause,
			ErrorCooldown:    DefaultErrorCooldown,
			AbandonPolicy:    AbandonDiscard,
			MergeAttempts:    DefaultMergeAttempts,
		},
		Source: SourceConfig{
			Mode:              SourceModeHTTP,
			UserAgent:         DefaultUserAgent,
			Timeout:           DefaultSourceTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
			MockPages:         DefaultMockPages,
			MockPageSize:      DefaultMockPageSize,
		},
		Identity: IdentityConfig{
			Mode:              IdentityModeDirect,
			RotatePer:         RotatePerLevel,
			TorStartupTimeout: DefaultTorStartupTimeout,
		},
		Translation: TranslationConfig{
			Provider:       TranslationOpenAI,
			Model:          DefaultTranslationModel,
			TargetLanguage: DefaultTranslationLanguage,
			Timeout:        DefaultTranslationTimeout,
			CacheTTL:       DefaultTranslationCacheTTL,
			ProgressEvery:  DefaultTranslationProgressEvery,
		},
	}
}

func defaultLevels() []int {
	levels := model.AllSeverityLevels()
	out := make([]int, len(levels))
	for i, l := range levels {
		out[i] = int(l)
	}
	return out
}

// SeverityLevels returns Levels as model values. Call Validate first.
func (c *Config) SeverityLevels() []model.SeverityLevel {
	out := make([]model.SeverityLevel, len(c.Levels))
	for i, l := range c.Levels {
		out[i] = model.SeverityLevel(l)
	}
	return out
}

// XDGDataDir returns the XDG data directory for reviewharvest.
// On Linux: ~/.local/share/reviewharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for reviewharvest.
// On Linux: ~/.config/reviewharvest
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if err := c.Harvest.validate(); err != nil {
		return err
	}
	if err := c.Source.validate(); err != nil {
		return err
	}
	if err := c.Identity.validate(); err != nil {
		return err
	}
	if err := c.Translation.validate(); err != nil {
		return err
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Identity.RotatePer == RotatePerRun && c.Concurrency > 1 {
		return ErrRunScopeConcurrency
	}
	if c.Identity.Mode == IdentityModeCommand && c.Concurrency > 1 {
		return ErrCommandConcurrency
	}

	if len(c.Levels) == 0 {
		return ErrNoLevels
	}
	seen := make(map[int]bool, len(c.Levels))
	for _, l := range c.Levels {
		if _, err := model.ParseSeverityLevel(l); err != nil {
			return err
		}
		if seen[l] {
			return ErrDuplicateLevel
		}
		seen[l] = true
	}

	switch c.ReportFormat {
	case ReportMarkdown, ReportJSON, ReportText:
	default:
		return ErrInvalidReportFormat
	}

	if c.DataDir == "" {
		return ErrNoDataDir
	}
	return nil
}

func (h HarvestConfig) validate() error {
	if h.PageSize <= 0 {
		return ErrInvalidPageSize
	}
	if h.FlushThreshold <= 0 {
		return ErrInvalidFlushThreshold
	}
	if h.EmptyStreakLimit <= 0 {
		return ErrInvalidEmptyStreakLimit
	}
	if h.EmptyPause < 0 || h.ErrorCooldown < 0 {
		return ErrInvalidPause
	}
	if h.MergeAttempts <= 0 {
		return ErrInvalidMergeAttempts
	}
	switch h.AbandonPolicy {
	case AbandonDiscard, AbandonFlush:
		return nil
	default:
		return ErrInvalidAbandonPolicy
	}
}

func (s SourceConfig) validate() error {
	switch s.Mode {
	case SourceModeHTTP:
		if s.BaseURL == "" {
			return ErrNoSourceURL
		}
	case SourceModeMock:
		if s.MockPages < 0 || s.MockPageSize <= 0 {
			return ErrInvalidMockShape
		}
	default:
		return ErrInvalidSourceMode
	}
	if s.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if s.RequestsPerSecond <= 0 || s.Burst <= 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

func (i IdentityConfig) validate() error {
	switch i.Mode {
	case IdentityModeTor:
		if i.TorStartupTimeout <= 0 {
			return ErrInvalidTimeout
		}
	case IdentityModeSOCKS:
		if len(i.Proxies) == 0 {
			return ErrNoProxies
		}
	case IdentityModeCommand:
		if len(i.UpCommand) == 0 || len(i.DownCommand) == 0 {
			return ErrNoIdentityCommand
		}
	case IdentityModeDirect:
	default:
		return ErrInvalidIdentityMode
	}

	switch i.RotatePer {
	case RotatePerLevel, RotatePerPartition, RotatePerRun:
		return nil
	default:
		return ErrInvalidRotateScope
	}
}

func (t TranslationConfig) validate() error {
	if !t.Enabled {
		return nil
	}
	switch t.Provider {
	case TranslationOpenAI:
		if t.APIKey == "" {
			return ErrNoTranslationKey
		}
	case TranslationNone:
	default:
		return ErrInvalidTranslationProvider
	}
	if t.TargetLanguage == "" {
		return ErrNoTranslationLanguage
	}
	if t.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}
