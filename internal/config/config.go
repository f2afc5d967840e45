// Package config loads the essay writer configuration from a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/markgewhite/agentic-essay-writer/internal/logging"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// DefaultPath is read when no file is named explicitly. A missing default
// file is not an error.
const DefaultPath = "essay.yaml"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Environment variables.
const (
	EnvAnthropicKey       = "ANTHROPIC_API_KEY"
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvTavilyKey          = "TAVILY_API_KEY"
	EnvEncryptionKey      = "ESSAY_ENCRYPTION_KEY"
	EnvEncryptionFallback = "ESSAY_ENCRYPTION_FALLBACK_KEYS"
	EnvStore              = "ESSAY_STORE"
	EnvStoreDir           = "ESSAY_STORE_DIR"
	EnvRedisAddr          = "ESSAY_REDIS_ADDR"
	EnvRedisPassword      = "ESSAY_REDIS_PASSWORD"
	EnvRedisDB            = "ESSAY_REDIS_DB"
	EnvLogLevel           = "ESSAY_LOG_LEVEL"
)

// Config is the full configuration of the CLI and servers.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Run    RunConfig    `yaml:"run"`
	Store  StoreConfig  `yaml:"store"`
	LLM    LLMConfig    `yaml:"llm"`
	Search SearchConfig `yaml:"search"`
	Server ServerConfig `yaml:"server"`

	// Secrets are only ever read from the environment.
	Secrets Secrets `yaml:"-"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RunConfig holds the defaults applied to new runs.
type RunConfig struct {
	Limits      domain.Limits `yaml:"limits"`
	Models      domain.Models `yaml:"models"`
	StepTimeout time.Duration `yaml:"step_timeout"`
}

type StoreConfig struct {
	Kind  string      `yaml:"kind"`
	Dir   string      `yaml:"dir"`
	Redis RedisConfig `yaml:"redis"`
	// Redact masks e-mail addresses and phone numbers in scraped research
	// before runs are written.
	Redact         bool     `yaml:"redact"`
	RedactPatterns []string `yaml:"redact_patterns"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	TTL        time.Duration `yaml:"ttl"`
	LockPrefix string        `yaml:"lock_prefix"`
}

type LLMConfig struct {
	MaxTokens        int64   `yaml:"max_tokens"`
	Temperature      float64 `yaml:"temperature"`
	AnthropicBaseURL string  `yaml:"anthropic_base_url"`
	OpenAIBaseURL    string  `yaml:"openai_base_url"`
}

type SearchConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Depth       string        `yaml:"depth"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Secrets are API and encryption keys.
type Secrets struct {
	AnthropicKey  string
	OpenAIKey     string
	TavilyKey     string
	EncryptionKey string
	FallbackKeys  []string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Run: RunConfig{
			Limits:      domain.DefaultLimits(),
			Models:      domain.DefaultModels(),
			StepTimeout: 5 * time.Minute,
		},
		Store: StoreConfig{
			Kind: StoreFile,
			Dir:  ".essay/runs",
			Redis: RedisConfig{
				Addr:       "localhost:6379",
				Prefix:     "essay:run:",
				LockPrefix: "essay:lock:",
			},
		},
		Search: SearchConfig{
			Depth:       "advanced",
			Timeout:     60 * time.Second,
			Concurrency: 4,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads path (or DefaultPath when empty), overlays the environment and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Run.Limits = cfg.Run.Limits.WithDefaults()
	cfg.Run.Models = cfg.Run.Models.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvAnthropicKey, &c.Secrets.AnthropicKey)
	str(EnvOpenAIKey, &c.Secrets.OpenAIKey)
	str(EnvTavilyKey, &c.Secrets.TavilyKey)
	str(EnvEncryptionKey, &c.Secrets.EncryptionKey)
	str(EnvStore, &c.Store.Kind)
	str(EnvStoreDir, &c.Store.Dir)
	str(EnvRedisAddr, &c.Store.Redis.Addr)
	str(EnvRedisPassword, &c.Store.Redis.Password)
	str(EnvLogLevel, &c.Log.Level)

	if v, ok := lookup(EnvEncryptionFallback); ok && v != "" {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Secrets.FallbackKeys = append(c.Secrets.FallbackKeys, k)
			}
		}
	}
	if v, ok := lookup(EnvRedisDB); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return &domain.ConfigurationError{Field: EnvRedisDB, Reason: "must be an integer"}
		}
		c.Store.Redis.DB = db
	}
	return nil
}

// Validate reports the first unusable setting as a ConfigurationError.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return &domain.ConfigurationError{Field: "log.level", Reason: err.Error()}
	}
	if err := c.Run.Limits.Validate(); err != nil {
		return err
	}
	if c.Run.StepTimeout <= 0 {
		return &domain.ConfigurationError{Field: "run.step_timeout", Reason: "must be positive"}
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StoreFile:
		if c.Store.Dir == "" {
			return &domain.ConfigurationError{Field: "store.dir", Reason: "is required for the file store"}
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return &domain.ConfigurationError{Field: "store.redis.addr", Reason: "is required for the redis store"}
		}
		if c.Store.Redis.TTL < 0 {
			return &domain.ConfigurationError{Field: "store.redis.ttl", Reason: "must not be negative"}
		}
	default:
		return &domain.ConfigurationError{Field: "store.kind", Reason: fmt.Sprintf("unknown store %q (memory, file or redis)", c.Store.Kind)}
	}

	switch c.Search.Depth {
	case "basic", "advanced":
	default:
		return &domain.ConfigurationError{Field: "search.depth", Reason: "must be basic or advanced"}
	}
	if c.Search.Concurrency <= 0 {
		return &domain.ConfigurationError{Field: "search.concurrency", Reason: "must be positive"}
	}
	if c.LLM.MaxTokens < 0 {
		return &domain.ConfigurationError{Field: "llm.max_tokens", Reason: "must not be negative"}
	}
	return nil
}
