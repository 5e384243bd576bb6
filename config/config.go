// Package config loads keepercore settings: defaults, then a YAML file,
// then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Keeper    KeeperConfig    `yaml:"keeper"`
	Log       LogConfig       `yaml:"log"`
	SaveDir   string          `yaml:"save_dir" env:"KEEPERCORE_SAVE_DIR"`
}

// ModelConfig selects the chat model.
type ModelConfig struct {
	Provider    string        `yaml:"provider" env:"KEEPERCORE_MODEL_PROVIDER"`
	Name        string        `yaml:"name" env:"KEEPERCORE_MODEL"`
	APIKey      string        `yaml:"api_key" env:"GEMINI_API_KEY"`
	Temperature float32       `yaml:"temperature" env:"KEEPERCORE_TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"KEEPERCORE_MODEL_TIMEOUT"`
}

// EmbeddingConfig selects the embedder.
type EmbeddingConfig struct {
	Provider      string  `yaml:"provider" env:"KEEPERCORE_EMBEDDING_PROVIDER"`
	Model         string  `yaml:"model" env:"KEEPERCORE_EMBEDDING_MODEL"`
	Dimensions    int     `yaml:"dimensions" env:"KEEPERCORE_EMBEDDING_DIMENSIONS"`
	RatePerSecond float64 `yaml:"rate_per_second" env:"KEEPERCORE_EMBEDDING_RATE"`
	Burst         int     `yaml:"burst" env:"KEEPERCORE_EMBEDDING_BURST"`
}

// CorpusConfig selects the passage index.
type CorpusConfig struct {
	Backend     string `yaml:"backend" env:"KEEPERCORE_CORPUS_BACKEND"`
	Path        string `yaml:"path" env:"KEEPERCORE_CORPUS_PATH"`
	ChunkSize   int    `yaml:"chunk_size" env:"KEEPERCORE_CHUNK_SIZE"`
	SearchLimit int    `yaml:"search_limit" env:"KEEPERCORE_SEARCH_LIMIT"`
}

// KeeperConfig tunes the orchestration loop.
type KeeperConfig struct {
	MaxRounds int   `yaml:"max_rounds" env:"KEEPERCORE_MAX_ROUNDS"`
	Seed      int64 `yaml:"seed" env:"KEEPERCORE_SEED"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `yaml:"level" env:"KEEPERCORE_LOG_LEVEL"`
	File  string `yaml:"file" env:"KEEPERCORE_LOG_FILE"`
}

// Provider and backend names.
const (
	ProviderGemini  = "gemini"
	ProviderHashing = "hashing"
	BackendFlat     = "flat"
	BackendSQLite   = "sqlite"
)

// Dir is the per-user state directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".keepercore"
	}
	return filepath.Join(home, ".keepercore")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		Model: ModelConfig{
			Provider:    ProviderGemini,
			Name:        "gemini-2.5-flash",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:      ProviderGemini,
			Model:         "gemini-embedding-001",
			Dimensions:    768,
			RatePerSecond: 5,
			Burst:         5,
		},
		Corpus: CorpusConfig{
			Backend:     BackendSQLite,
			Path:        filepath.Join(dir, "corpus.db"),
			ChunkSize:   500,
			SearchLimit: 5,
		},
		Keeper: KeeperConfig{MaxRounds: 3},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "keepercore.log"),
		},
		SaveDir: filepath.Join(dir, "saves"),
	}
}

// Load builds the configuration. An empty path reads DefaultPath if it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Model.Provider != ProviderGemini {
		bad("model.provider must be %q, got %q", ProviderGemini, c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		bad("model.temperature must be within [0, 2], got %g", c.Model.Temperature)
	}
	if c.Model.Timeout < 0 {
		bad("model.timeout must not be negative")
	}
	switch c.Embedding.Provider {
	case ProviderGemini, ProviderHashing:
	default:
		bad("embedding.provider must be %q or %q, got %q", ProviderGemini, ProviderHashing, c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		bad("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Corpus.Backend {
	case BackendFlat:
	case BackendSQLite:
		if c.Corpus.Path == "" {
			bad("corpus.path is required for the sqlite backend")
		}
	default:
		bad("corpus.backend must be %q or %q, got %q", BackendFlat, BackendSQLite, c.Corpus.Backend)
	}
	if c.Corpus.ChunkSize <= 0 {
		bad("corpus.chunk_size must be positive, got %d", c.Corpus.ChunkSize)
	}
	if c.Corpus.SearchLimit <= 0 {
		bad("corpus.search_limit must be positive, got %d", c.Corpus.SearchLimit)
	}
	if c.Keeper.MaxRounds < 0 {
		bad("keeper.max_rounds must not be negative, got %d", c.Keeper.MaxRounds)
	}
	return errors.Join(errs...)
}

// ResolveSeed returns the configured RNG seed, or a time-based one when unset.
func (k KeeperConfig) ResolveSeed() int64 {
	if k.Seed != 0 {
		return k.Seed
	}
	return time.Now().UnixNano()
}
