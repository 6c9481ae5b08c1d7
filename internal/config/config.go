// Package config builds the immutable application configuration once at
// process start. Components receive the sections they need in constructors.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultUserAgent is sent on every scrape request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// Config holds all application configuration
type Config struct {
	Database   Database   `mapstructure:"database"`
	HTTP       HTTP       `mapstructure:"http"`
	Scrape     Scrape     `mapstructure:"scrape"`
	Extraction Extraction `mapstructure:"extraction"`
	Judge      Judge      `mapstructure:"judge"`
	Pipeline   Pipeline   `mapstructure:"pipeline"`
	Roundup    Roundup    `mapstructure:"roundup"`
	OpenAI     OpenAI     `mapstructure:"openai"`
	Caption    Caption    `mapstructure:"caption"`
	Redis      Redis      `mapstructure:"redis"`
	NATS       NATS       `mapstructure:"nats"`
	Schedule   Schedule   `mapstructure:"schedule"`
	Cleanup    Cleanup    `mapstructure:"cleanup"`
}

// Database holds PostgreSQL connection settings
type Database struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	LogLevel string `mapstructure:"log_level"`
}

// HTTP holds API server settings
type HTTP struct {
	Port          string `mapstructure:"port"`
	AdminPassword string `mapstructure:"admin_password"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	ReleaseMode   bool   `mapstructure:"release_mode"`
}

// Scrape holds fetcher settings shared by scraping, ingestion and access checks
type Scrape struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	MaxContentChars int           `mapstructure:"max_content_chars"`
	MaxItems        int           `mapstructure:"max_items"`
	LoginRules      []LoginRule   `mapstructure:"login_rules"`
}

// LoginRule is a site specific login wall rule read from the config file.
// It fires on pages of Domain (or a subdomain) containing every marker.
type LoginRule struct {
	Name    string   `mapstructure:"name"`
	Domain  string   `mapstructure:"domain"`
	Markers []string `mapstructure:"markers"`
}

// Extraction holds summarizer settings
type Extraction struct {
	MaxChars  int    `mapstructure:"max_chars"`
	UseLLM    bool   `mapstructure:"use_llm"`
	Model     string `mapstructure:"model"`
	BatchSize int    `mapstructure:"batch_size"`
}

// Judge holds scoring settings
type Judge struct {
	Model         string `mapstructure:"model"`
	VideoMinScore int    `mapstructure:"video_min_score"`
	BatchSize     int    `mapstructure:"batch_size"`
}

// Pipeline holds orchestrator limits
type Pipeline struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	IngestLimit     int           `mapstructure:"ingest_limit"`
	MaxExtractItems int           `mapstructure:"max_extract_items"`
	MaxJudgeItems   int           `mapstructure:"max_judge_items"`
}

// Roundup holds audio roundup selection settings
type Roundup struct {
	Size  int `mapstructure:"size"`
	Hours int `mapstructure:"hours"`
}

// OpenAI holds settings for the OpenAI compatible chat endpoint
type OpenAI struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Retries int    `mapstructure:"retries"`
}

// Caption holds image caption settings
type Caption struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// Redis holds the lock store location; empty URL selects the in-memory lock
type Redis struct {
	URL string `mapstructure:"url"`
}

// NATS holds the run event bus location; empty URL disables publishing
type NATS struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// Schedule holds cron specs for the server's background jobs
type Schedule struct {
	Pipeline string `mapstructure:"pipeline"`
	Cleanup  string `mapstructure:"cleanup"`
}

// Cleanup holds retention settings
type Cleanup struct {
	Hours int `mapstructure:"hours"`
}

// envBindings maps config keys to their historical environment variable names
var envBindings = map[string]string{
	"database.host":         "DB_HOST",
	"database.port":         "DB_PORT",
	"database.user":         "DB_USER",
	"database.password":     "DB_PASSWORD",
	"database.name":         "DB_NAME",
	"database.sslmode":      "DB_SSLMODE",
	"database.log_level":    "DB_LOG_LEVEL",
	"http.port":             "PORT",
	"http.admin_password":   "ADMIN_PASSWORD",
	"http.jwt_secret":       "API_JWT_SECRET",
	"scrape.user_agent":     "USER_AGENT",
	"extraction.max_chars":  "EXTRACTION_MAX_CHARS",
	"extraction.use_llm":    "EXTRACTION_USE_LLM",
	"extraction.model":      "EXTRACTION_MODEL",
	"judge.model":           "JUDGE_MODEL",
	"judge.video_min_score": "VIDEO_MIN_SCORE",
	"pipeline.max_attempts": "MAX_STAGE_ATTEMPTS",
	"pipeline.lock_ttl":     "PIPELINE_LOCK_TTL",
	"roundup.size":          "AUDIO_ROUNDUP_SIZE",
	"roundup.hours":         "AUDIO_ROUNDUP_HOURS",
	"openai.api_key":        "OPENAI_API_KEY",
	"openai.base_url":       "OPENAI_BASE_URL",
	"caption.enabled":       "ENABLE_IMAGE_CAPTION",
	"caption.model":         "IMAGE_CAPTION_MODEL",
	"redis.url":             "REDIS_URL",
	"nats.url":              "NATS_URL",
	"nats.subject":          "NATS_SUBJECT",
	"schedule.pipeline":     "SCHEDULE_PIPELINE",
	"schedule.cleanup":      "SCHEDULE_CLEANUP",
	"cleanup.hours":         "CLEANUP_HOURS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "newsmill")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.admin_password", "admin123")
	v.SetDefault("http.jwt_secret", "")
	v.SetDefault("http.release_mode", false)

	v.SetDefault("scrape.user_agent", DefaultUserAgent)
	v.SetDefault("scrape.max_content_chars", 4000)
	v.SetDefault("scrape.max_items", 10)

	v.SetDefault("extraction.max_chars", 20000)
	v.SetDefault("extraction.use_llm", true)
	v.SetDefault("extraction.model", "gpt-5-nano")
	v.SetDefault("extraction.batch_size", 20)

	v.SetDefault("judge.model", "gpt-4.1-mini")
	v.SetDefault("judge.video_min_score", 6)
	v.SetDefault("judge.batch_size", 50)

	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.lock_ttl", "30m")
	v.SetDefault("pipeline.ingest_limit", 50)
	v.SetDefault("pipeline.max_extract_items", 200)
	v.SetDefault("pipeline.max_judge_items", 500)

	v.SetDefault("roundup.size", 5)
	v.SetDefault("roundup.hours", 24)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.retries", 2)

	v.SetDefault("caption.enabled", false)
	v.SetDefault("caption.model", "gpt-4o-mini")

	v.SetDefault("redis.url", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "newsmill.pipeline.runs")

	v.SetDefault("schedule.pipeline", "@every 1h")
	v.SetDefault("schedule.cleanup", "@every 6h")

	v.SetDefault("cleanup.hours", 48)
}

// Load reads .env files, an optional YAML config file and the environment.
// Real environment variables always win over .env values.
func Load(configFile string) (Config, error) {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err == nil {
			log.Printf("📄 Loaded environment from %s", name)
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	// REQUEST_TIMEOUT has always been expressed in whole seconds
	cfg.Scrape.RequestTimeout = time.Duration(v.GetInt("REQUEST_TIMEOUT")) * time.Second
	if cfg.Scrape.RequestTimeout <= 0 {
		cfg.Scrape.RequestTimeout = 30 * time.Second
	}
	cfg.HTTP.ReleaseMode = cfg.HTTP.ReleaseMode || v.GetString("GIN_MODE") == "release"

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c Config) Validate() error {
	if c.Extraction.MaxChars <= 0 {
		return fmt.Errorf("extraction.max_chars must be > 0")
	}
	if c.Judge.VideoMinScore < 0 || c.Judge.VideoMinScore > 10 {
		return fmt.Errorf("judge.video_min_score must be within 0..10")
	}
	if c.Pipeline.MaxAttempts <= 0 {
		return fmt.Errorf("pipeline.max_attempts must be > 0")
	}
	if c.Roundup.Size <= 0 || c.Roundup.Hours <= 0 {
		return fmt.Errorf("roundup size and hours must be > 0")
	}
	return nil
}

// Default returns the configuration with every default applied and no
// environment or file input. Tests and tools build on it.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.Scrape.RequestTimeout = 30 * time.Second
	return cfg
}
