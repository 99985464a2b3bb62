// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sink kinds accepted by sink.kind.
const (
	SinkLog      = "log"
	SinkFile     = "file"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
	SinkMemory   = "memory"
)

// DefaultSeeds is the seed set used when crawl.seeds is not configured.
var DefaultSeeds = []string{
	"https://dev.to",
	"https://www.reddit.com/r/programming",
	"https://hackernoon.com",
	"https://myanimelist.net",
	"https://anilist.co",
	"https://www.reddit.com/r/anime/",
}

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Dedup   DedupConfig   `mapstructure:"dedup"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlConfig governs traversal and fetching.
type CrawlConfig struct {
	Seeds          []string      `mapstructure:"seeds"`
	MaxLevels      int           `mapstructure:"max_levels"`
	MaxVisited     int           `mapstructure:"max_visited"`
	Concurrency    int           `mapstructure:"concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	MaxBodyBytes   int           `mapstructure:"max_body_bytes"`
	// MaxTextChars truncates page text before tagging. Zero means no limit.
	MaxTextChars int `mapstructure:"max_text_chars"`
}

// ScoringConfig bounds keyword output.
type ScoringConfig struct {
	TopN              int     `mapstructure:"top_n"`
	ScoreCap          float64 `mapstructure:"score_cap"`
	EmphasizeHeadings bool    `mapstructure:"emphasize_headings"`
}

// DedupConfig sizes the optional bloom prefilter.
type DedupConfig struct {
	BloomCapacity uint    `mapstructure:"bloom_capacity"`
	BloomFPRate   float64 `mapstructure:"bloom_fp_rate"`
}

// SinkConfig selects and configures the record sink.
type SinkConfig struct {
	Kind          string        `mapstructure:"kind"`
	DSN           string        `mapstructure:"dsn"`
	Table         string        `mapstructure:"table"`
	CreateTable   bool          `mapstructure:"create_table"`
	Path          string        `mapstructure:"path"`
	InsertTimeout time.Duration `mapstructure:"insert_timeout"`
	Retry         RetryConfig   `mapstructure:"retry"`
}

// RetryConfig controls sink insert retries. MaxAttempts 0 disables retry.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KWCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.seeds", DefaultSeeds)
	v.SetDefault("crawl.max_levels", 1000)
	v.SetDefault("crawl.max_visited", 0)
	v.SetDefault("crawl.concurrency", 4)
	v.SetDefault("crawl.request_timeout", 15*time.Second)
	v.SetDefault("crawl.user_agent", "keyword-crawler/0.1")
	v.SetDefault("crawl.max_body_bytes", 5<<20)
	v.SetDefault("crawl.max_text_chars", 200000)
	v.SetDefault("scoring.top_n", 10)
	v.SetDefault("scoring.score_cap", 50.0)
	v.SetDefault("scoring.emphasize_headings", true)
	v.SetDefault("dedup.bloom_capacity", 0)
	v.SetDefault("dedup.bloom_fp_rate", 0.01)
	v.SetDefault("sink.kind", SinkLog)
	v.SetDefault("sink.table", "links")
	v.SetDefault("sink.create_table", false)
	v.SetDefault("sink.insert_timeout", 10*time.Second)
	v.SetDefault("sink.retry.max_attempts", 0)
	v.SetDefault("sink.retry.base_delay", 250*time.Millisecond)
	v.SetDefault("sink.retry.max_delay", 5*time.Second)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Crawl.Seeds) == 0 {
		return fmt.Errorf("crawl.seeds must not be empty")
	}
	if c.Crawl.MaxLevels <= 0 {
		return fmt.Errorf("crawl.max_levels must be > 0")
	}
	if c.Crawl.MaxVisited < 0 {
		return fmt.Errorf("crawl.max_visited must be >= 0")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Crawl.RequestTimeout <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0")
	}
	if c.Crawl.MaxTextChars < 0 {
		return fmt.Errorf("crawl.max_text_chars must be >= 0")
	}
	if c.Scoring.TopN <= 0 {
		return fmt.Errorf("scoring.top_n must be > 0")
	}
	if c.Scoring.ScoreCap <= 0 {
		return fmt.Errorf("scoring.score_cap must be > 0")
	}
	if c.Dedup.BloomCapacity > 0 && (c.Dedup.BloomFPRate <= 0 || c.Dedup.BloomFPRate >= 1) {
		return fmt.Errorf("dedup.bloom_fp_rate must be in (0, 1)")
	}
	if c.Sink.Retry.MaxAttempts < 0 {
		return fmt.Errorf("sink.retry.max_attempts must be >= 0")
	}
	switch c.Sink.Kind {
	case SinkLog, SinkMemory:
	case SinkFile, SinkSQLite:
		if c.Sink.Path == "" {
			return fmt.Errorf("sink.path must be set for sink.kind %q", c.Sink.Kind)
		}
	case SinkPostgres:
		if c.Sink.DSN == "" {
			return fmt.Errorf("sink.dsn must be set for sink.kind %q", c.Sink.Kind)
		}
	default:
		return fmt.Errorf("sink.kind %q is not supported", c.Sink.Kind)
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}
