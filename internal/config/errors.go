package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and are fatal for a run.
// Callers can match them with errors.Is().
var (
	// ErrInvalidPageSize is returned when the page size hint is not positive.
	ErrInvalidPageSize = errors.New("invalid page size: must be positive")

	// ErrInvalidFlushThreshold is returned when the flush threshold is not positive.
	ErrInvalidFlushThreshold = errors.New("invalid flush threshold: must be positive")

	// ErrInvalidEmptyStreakLimit is returned when the empty streak limit is not positive.
	ErrInvalidEmptyStreakLimit = errors.New("invalid empty streak limit: must be positive")

	// ErrInvalidPause is returned when a pause or cooldown is negative.
	ErrInvalidPause = errors.New("invalid pause: must be non-negative")

	// ErrInvalidMergeAttempts is returned when merge attempts is not positive.
	ErrInvalidMergeAttempts = errors.New("invalid merge attempts: must be positive")

	// ErrInvalidAbandonPolicy is returned for an unknown abandon policy.
	ErrInvalidAbandonPolicy = errors.New("invalid abandon policy: must be discard or flush")

	// ErrInvalidSourceMode is returned for an unknown source mode.
	ErrInvalidSourceMode = errors.New("invalid source mode: must be http or mock")

	// ErrNoSourceURL is returned when the http source has no base URL.
	ErrNoSourceURL = errors.New("no source base URL: set source.base_url or use --mock")

	// ErrInvalidMockShape is returned when the mock source page settings are invalid.
	ErrInvalidMockShape = errors.New("invalid mock source shape: pages must be non-negative and page size positive")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned when the request rate or burst is not positive.
	ErrInvalidRateLimit = errors.New("invalid rate limit: requests per second and burst must be positive")

	// ErrInvalidIdentityMode is returned for an unknown identity mode.
	ErrInvalidIdentityMode = errors.New("invalid identity mode: must be tor, socks, command or direct")

	// ErrNoProxies is returned when socks mode has an empty proxy pool.
	ErrNoProxies = errors.New("no proxies configured for socks identity mode")

	// ErrNoIdentityCommand is returned when command mode lacks up or down commands.
	ErrNoIdentityCommand = errors.New("command identity mode requires up_command and down_command")

	// ErrInvalidRotateScope is returned for an unknown rotation scope.
	ErrInvalidRotateScope = errors.New("invalid rotate_per: must be level, partition or run")

	// ErrRunScopeConcurrency is returned when a single run-wide identity
	// would be shared by parallel workers.
	ErrRunScopeConcurrency = errors.New("rotate_per run requires concurrency 1")

	// ErrCommandConcurrency is returned when parallel workers would share
	// the single host-wide tunnel of command identity mode.
	ErrCommandConcurrency = errors.New("identity mode command requires concurrency 1")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrNoLevels is returned when no severity level is selected.
	ErrNoLevels = errors.New("no severity levels selected")

	// ErrDuplicateLevel is returned when a severity level is listed twice.
	ErrDuplicateLevel = errors.New("duplicate severity level")

	// ErrInvalidReportFormat is returned for an unknown report format.
	ErrInvalidReportFormat = errors.New("invalid report format: must be markdown, json or text")

	// ErrNoDataDir is returned when the data directory is empty.
	ErrNoDataDir = errors.New("no data directory configured")

	// ErrInvalidTranslationProvider is returned for an unknown translation provider.
	ErrInvalidTranslationProvider = errors.New("invalid translation provider: must be openai or none")

	// ErrNoTranslationKey is returned when openai translation has no API key.
	ErrNoTranslationKey = errors.New("translation enabled but no API key: set OPENAI_API_KEY")

	// ErrNoTranslationLanguage is returned when the translation target language is empty.
	ErrNoTranslationLanguage = errors.New("translation enabled but no target language")
)

// Catalog errors.
var (
	// ErrEmptyCatalog is returned when a catalog file lists no locales.
	ErrEmptyCatalog = errors.New("language catalog is empty")

	// ErrInvalidLocale is returned when a catalog entry is not a valid
	// language or region code.
	ErrInvalidLocale = errors.New("invalid catalog entry")
)
