package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DBFile != "memory.db" {
		t.Errorf("DBFile = %q", cfg.Storage.DBFile)
	}
	if cfg.Index.M != 16 || cfg.Index.EfConstruction != 200 || cfg.Index.EfSearch != 50 {
		t.Errorf("index defaults = %+v", cfg.Index)
	}
	if cfg.Hooks.EnrichTimeout != 15*time.Second {
		t.Errorf("EnrichTimeout = %v", cfg.Hooks.EnrichTimeout)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("storage:\n  tokenizer: trigram\nindex:\n  dimensions: 8\n  metric: euclidean\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Tokenizer != "trigram" {
		t.Errorf("Tokenizer = %q", cfg.Storage.Tokenizer)
	}
	if cfg.Index.Dimensions != 8 {
		t.Errorf("Dimensions = %d", cfg.Index.Dimensions)
	}
	if cfg.Index.Metric != "euclidean" {
		t.Errorf("Metric = %q", cfg.Index.Metric)
	}
	// Untouched settings keep their defaults.
	if cfg.Cache.MaxSize != 1000 {
		t.Errorf("MaxSize = %d", cfg.Cache.MaxSize)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("index:\n  metric: euclidean\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CODEMEM_INDEX_METRIC", "dot")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.Metric != "dot" {
		t.Errorf("Metric = %q, want env override", cfg.Index.Metric)
	}
}

func TestLoad_RejectsInvalidMetric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("index:\n  metric: chebyshev\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unknown metric")
	}
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	bad := Default()
	bad.Index.Dimensions = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero dimensions must fail")
	}

	bad = Default()
	bad.Index.Quantization = "vector"
	if err := bad.Validate(); err == nil {
		t.Error("unknown quantization must fail")
	}

	bad = Default()
	bad.Cache.MaxSize = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero cache size must fail")
	}
}
