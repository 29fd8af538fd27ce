// Package cfg loads codemem configuration: compiled-in defaults,
// overridden by an optional YAML file, overridden by environment
// variables.
package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Storage Storage `koanf:"storage"`
	Index   Index   `koanf:"index"`
	Cache   CacheCfg `koanf:"cache"`
	Hooks   Hooks   `koanf:"hooks"`
}

// Storage configures the persistence engine.
type Storage struct {
	// BaseDir is the project directory; the database lives at
	// <base_dir>/.claude/memory/<db_file>.
	BaseDir string `koanf:"base_dir"`
	DBFile  string `koanf:"db_file"`

	// Tokenizer selects the FTS5 tokenizer: unicode61, porter, trigram,
	// or a caller-supplied tokenizer name.
	Tokenizer string `koanf:"tokenizer"`
}

// Index configures the HNSW vector index.
type Index struct {
	Dimensions     int    `koanf:"dimensions"`
	M              int    `koanf:"m"`
	EfConstruction int    `koanf:"ef_construction"`
	EfSearch       int    `koanf:"ef_search"`
	MaxElements    int    `koanf:"max_elements"`
	Metric         string `koanf:"metric"`
	Quantization   string `koanf:"quantization"`
}

// CacheCfg configures the hot-entry cache.
type CacheCfg struct {
	MaxSize         int           `koanf:"max_size"`
	MaxMemory       int64         `koanf:"max_memory"`
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// Hooks configures the hook pipeline.
type Hooks struct {
	EnrichTimeout time.Duration `koanf:"enrich_timeout"`
}

// Default returns the compiled-in defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Storage: Storage{
			BaseDir:   home,
			DBFile:    "memory.db",
			Tokenizer: "unicode61",
		},
		Index: Index{
			Dimensions:     384,
			M:              16,
			EfConstruction: 200,
			EfSearch:       50,
			MaxElements:    100000,
			Metric:         "cosine",
			Quantization:   "none",
		},
		Cache: CacheCfg{
			MaxSize:         1000,
			MaxMemory:       32 << 20,
			TTL:             5 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Hooks: Hooks{
			EnrichTimeout: 15 * time.Second,
		},
	}
}

// DefaultPath is the default YAML config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "codemem", "config.yaml"), nil
}

// Validate rejects configurations that cannot produce a working service.
func (c Config) Validate() error {
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir must not be empty")
	}
	if c.Index.Dimensions <= 0 {
		return fmt.Errorf("index.dimensions must be positive, got %d", c.Index.Dimensions)
	}
	switch c.Index.Metric {
	case "cosine", "euclidean", "dot", "manhattan":
	default:
		return fmt.Errorf("index.metric %q is not one of cosine, euclidean, dot, manhattan", c.Index.Metric)
	}
	switch c.Index.Quantization {
	case "none", "binary", "scalar", "product":
	default:
		return fmt.Errorf("index.quantization %q is not one of none, binary, scalar, product", c.Index.Quantization)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Hooks.EnrichTimeout < 0 {
		return fmt.Errorf("hooks.enrich_timeout must not be negative")
	}
	return nil
}
