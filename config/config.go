package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DuplicateWindowEnv overrides checkin.duplicate_window_minutes when set.
const DuplicateWindowEnv = "CHECKIN_DUPLICATE_WINDOW_MINUTES"

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	CheckIn    CheckInConfig    `yaml:"checkin"`
	Registry   RegistryConfig   `yaml:"registry"`
	Database   DatabaseConfig   `yaml:"database"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
}

// WorkerPoolConfig holds the configuration for the registry enrichment worker pool.
type WorkerPoolConfig struct {
	Size  int `yaml:"size"`
	Queue int `yaml:"queue"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	CORSOrigins     []string `yaml:"cors_allow_origins"`
}

// CheckInConfig holds the gate engine settings.
type CheckInConfig struct {
	DuplicateWindowMinutes int           `yaml:"duplicate_window_minutes"`
	DuplicateWindow        time.Duration `yaml:"-"`
	DuplicatePolicy        string        `yaml:"duplicate_policy"` // "check_in_time" (default) or "last_activity"
	RegistryWaitMillis     int           `yaml:"registry_wait_ms"`
	RegistryWait           time.Duration `yaml:"-"`
}

// RegistryConfig describes the public licence register the gate cross-checks against.
type RegistryConfig struct {
	Enabled         bool              `yaml:"enabled"`
	SearchURL       string            `yaml:"search_url"`
	TimeoutSeconds  int               `yaml:"timeout_seconds"`
	Timeout         time.Duration     `yaml:"-"`
	UserAgent       string            `yaml:"user_agent"`
	HTTPProxy       string            `yaml:"http_proxy"`
	RateLimitPerSec float64           `yaml:"rate_limit_per_sec"`
	CacheTTLMinutes int               `yaml:"cache_ttl_minutes"`
	CacheTTL        time.Duration     `yaml:"-"`
	InputNames      []string          `yaml:"input_names"`
	HintTexts       []string          `yaml:"hint_texts"`
	Labels          map[string]string `yaml:"labels"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// ReconcileConfig controls the optional stale-session reconciliation job.
type ReconcileConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	MaxOpenHours    int           `yaml:"max_open_hours"`
	MaxOpen         time.Duration `yaml:"-"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.CheckIn.DuplicatePolicy {
	case "check_in_time", "last_activity":
		return nil
	}
	return fmt.Errorf("invalid checkin.duplicate_policy %q: want check_in_time or last_activity", cfg.CheckIn.DuplicatePolicy)
}

func (cfg *Config) applyEnv() error {
	raw := os.Getenv(DuplicateWindowEnv)
	if raw == "" {
		return nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", DuplicateWindowEnv, raw, err)
	}
	cfg.CheckIn.DuplicateWindowMinutes = minutes
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.CheckIn.DuplicateWindowMinutes <= 0 {
		log.Printf("checkin.duplicate_window_minutes is not set or invalid; defaulting to 5")
		cfg.CheckIn.DuplicateWindowMinutes = 5
	}
	cfg.CheckIn.DuplicateWindow = time.Duration(cfg.CheckIn.DuplicateWindowMinutes) * time.Minute
	if cfg.CheckIn.DuplicatePolicy == "" {
		cfg.CheckIn.DuplicatePolicy = "check_in_time"
	}
	if cfg.CheckIn.RegistryWaitMillis <= 0 {
		cfg.CheckIn.RegistryWaitMillis = 8000
	}
	cfg.CheckIn.RegistryWait = time.Duration(cfg.CheckIn.RegistryWaitMillis) * time.Millisecond

	if cfg.Registry.TimeoutSeconds <= 0 {
		cfg.Registry.TimeoutSeconds = 15
	}
	cfg.Registry.Timeout = time.Duration(cfg.Registry.TimeoutSeconds) * time.Second
	if cfg.Registry.RateLimitPerSec <= 0 {
		cfg.Registry.RateLimitPerSec = 2
	}
	if cfg.Registry.CacheTTLMinutes <= 0 {
		cfg.Registry.CacheTTLMinutes = 60
	}
	cfg.Registry.CacheTTL = time.Duration(cfg.Registry.CacheTTLMinutes) * time.Minute
	if cfg.Registry.UserAgent == "" {
		cfg.Registry.UserAgent = "Mozilla/5.0 (compatible; gate-checkin/1.0)"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.Queue <= 0 {
		cfg.WorkerPool.Queue = cfg.WorkerPool.Size * 16
	}

	if cfg.Reconcile.IntervalSeconds <= 0 {
		cfg.Reconcile.IntervalSeconds = 600
	}
	cfg.Reconcile.Interval = time.Duration(cfg.Reconcile.IntervalSeconds) * time.Second
	if cfg.Reconcile.MaxOpenHours <= 0 {
		cfg.Reconcile.MaxOpenHours = 24
	}
	cfg.Reconcile.MaxOpen = time.Duration(cfg.Reconcile.MaxOpenHours) * time.Hour
}
