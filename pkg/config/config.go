package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SymbolConfig describes one member of the tracked universe.
type SymbolConfig struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Sector   string `yaml:"sector"`
	Currency string `yaml:"currency"`
}

// TTLConfig is the per-dataset-kind freshness policy.
type TTLConfig struct {
	Quote        time.Duration `yaml:"quote"`
	History      time.Duration `yaml:"history"`
	Indicators   time.Duration `yaml:"indicators"`
	Analytics    time.Duration `yaml:"analytics"`
	Fundamentals time.Duration `yaml:"fundamentals"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Cache struct {
		Backend       string        `yaml:"backend"` // fs, memory or redis
		Dir           string        `yaml:"dir"`
		Retention     time.Duration `yaml:"retention"`
		SweepSchedule string        `yaml:"sweep_schedule"`
		TTL           TTLConfig     `yaml:"ttl"`
	} `yaml:"cache"`
	Provider struct {
		BaseURL      string        `yaml:"base_url"`
		Timeout      time.Duration `yaml:"timeout"`
		RateCapacity float64       `yaml:"rate_capacity"`
		RatePerSec   float64       `yaml:"rate_per_sec"`
	} `yaml:"provider"`
	Scheduler struct {
		Workers          int           `yaml:"workers"`
		PerSymbolTimeout time.Duration `yaml:"per_symbol_timeout"`
		MaxAttempts      int           `yaml:"max_attempts"`
		RetryBackoff     time.Duration `yaml:"retry_backoff"`
	} `yaml:"scheduler"`
	Universe []SymbolConfig `yaml:"universe"`
	Redis    struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port"`
		Database    string        `yaml:"database"`
		User        string        `yaml:"user"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalTopic  string   `yaml:"signal_topic"`
		FetchTopic   string   `yaml:"fetch_topic"`
		Compression  string   `yaml:"compression"`
		RequiredAcks int      `yaml:"required_acks"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "fs"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "data/processed"
	}
	if c.Cache.Retention == 0 {
		c.Cache.Retention = 7 * 24 * time.Hour
	}
	if c.Cache.SweepSchedule == "" {
		c.Cache.SweepSchedule = "0 * * * *" // hourly
	}
	if c.Cache.TTL.Quote == 0 {
		c.Cache.TTL.Quote = 5 * time.Minute
	}
	if c.Cache.TTL.History == 0 {
		c.Cache.TTL.History = time.Hour
	}
	if c.Cache.TTL.Indicators == 0 {
		c.Cache.TTL.Indicators = time.Hour
	}
	if c.Cache.TTL.Analytics == 0 {
		c.Cache.TTL.Analytics = time.Hour
	}
	if c.Cache.TTL.Fundamentals == 0 {
		c.Cache.TTL.Fundamentals = 24 * time.Hour
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Provider.RateCapacity == 0 {
		c.Provider.RateCapacity = 5
	}
	if c.Provider.RatePerSec == 0 {
		c.Provider.RatePerSec = 2
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 5
	}
	if c.Scheduler.PerSymbolTimeout == 0 {
		c.Scheduler.PerSymbolTimeout = 10 * time.Second
	}
	if c.Scheduler.MaxAttempts == 0 {
		c.Scheduler.MaxAttempts = 2
	}
	if c.Scheduler.RetryBackoff == 0 {
		c.Scheduler.RetryBackoff = 500 * time.Millisecond
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Cache.Backend {
	case "fs", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be 'fs', 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis cache backend")
	}
	if len(c.Universe) == 0 {
		return fmt.Errorf("universe cannot be empty")
	}
	seen := make(map[string]struct{}, len(c.Universe))
	for _, s := range c.Universe {
		if s.Symbol == "" {
			return fmt.Errorf("universe entries require a symbol")
		}
		if _, dup := seen[s.Symbol]; dup {
			return fmt.Errorf("duplicate universe symbol %s", s.Symbol)
		}
		seen[s.Symbol] = struct{}{}
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

// Symbols returns the universe ticker list in declaration order.
func (c *Config) Symbols() []string {
	out := make([]string, len(c.Universe))
	for i, s := range c.Universe {
		out[i] = s.Symbol
	}
	return out
}
