package cfg

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// maxConfigFileSize bounds the YAML file we are willing to parse.
const maxConfigFileSize = 1 << 20

// envPrefix namespaces the environment variables consulted by Load.
const envPrefix = "CODEMEM_"

// Load resolves the runtime configuration.
//
// Precedence, highest to lowest:
//  1. Environment variables (CODEMEM_STORAGE_BASE_DIR, CODEMEM_INDEX_METRIC, ...)
//  2. YAML config file (configPath, default ~/.config/codemem/config.yaml)
//  3. Compiled-in defaults
//
// A missing config file is not an error; a present but unreadable or
// oversized one is.
func Load(configPath string) (Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		configPath = p
	}

	if info, err := os.Stat(configPath); err == nil {
		if info.Size() > maxConfigFileSize {
			return Config{}, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}
		f, err := os.Open(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("opening config file: %w", err)
		}
		defer f.Close()
		content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	// CODEMEM_STORAGE_BASE_DIR -> storage.base_dir: split section on the
	// first underscore, keep remaining underscores inside the field name.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
