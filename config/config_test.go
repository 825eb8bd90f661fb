package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = -1
			},
			wantErr: "parallelism",
		},
		{
			name: "no category urls",
			mutate: func(cfg *Config) {
				cfg.CategoryURLs = nil
			},
			wantErr: "category URL",
		},
		{
			name: "category url without host",
			mutate: func(cfg *Config) {
				cfg.CategoryURLs = []string{"http://"}
			},
			wantErr: "category URL",
		},
		{
			name: "empty media base",
			mutate: func(cfg *Config) {
				cfg.MediaBaseURL = ""
			},
			wantErr: "media base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "unknown store driver",
			mutate: func(cfg *Config) {
				cfg.StoreDriver = "mongo"
			},
			wantErr: "store driver",
		},
		{
			name: "empty output dir",
			mutate: func(cfg *Config) {
				cfg.OutputDir = ""
			},
			wantErr: "output dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	content := `category_urls:
  - https://books.toscrape.com/catalogue/category/books/poetry_23/index.html
timeout: 15s
store_driver: jsonl
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := DefaultConfig()
	if err := Load(cfg, path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.CategoryURLs) != 1 || !strings.Contains(cfg.CategoryURLs[0], "poetry_23") {
		t.Fatalf("category urls = %v", cfg.CategoryURLs)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("timeout = %v, want 15s", cfg.Timeout)
	}
	if cfg.StoreDriver != "jsonl" {
		t.Fatalf("store driver = %q, want jsonl", cfg.StoreDriver)
	}
	if cfg.OutputDir != "output" {
		t.Fatalf("output dir should keep its default, got %q", cfg.OutputDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if err := Load(DefaultConfig(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCRAPER_CATEGORY_URLS", "https://a.test/x/cat_1/index.html, https://a.test/x/cat_2/index.html")
	t.Setenv("SCRAPER_PARALLEL", "8")
	t.Setenv("SCRAPER_TIMEOUT", "3s")
	t.Setenv("SCRAPER_STORE_DRIVER", "CSV")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if len(cfg.CategoryURLs) != 2 {
		t.Fatalf("category urls = %v, want 2", cfg.CategoryURLs)
	}
	if cfg.Parallelism != 8 {
		t.Fatalf("parallelism = %d, want 8", cfg.Parallelism)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v, want 3s", cfg.Timeout)
	}
	if cfg.StoreDriver != "csv" {
		t.Fatalf("store driver = %q, want csv", cfg.StoreDriver)
	}
}

func TestApplyEnvInvalidInt(t *testing.T) {
	t.Setenv("SCRAPER_PARALLEL", "many")
	if err := ApplyEnv(DefaultConfig()); err == nil || !strings.Contains(err.Error(), "SCRAPER_PARALLEL") {
		t.Fatalf("expected SCRAPER_PARALLEL error, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SCRAPER_OUTPUT_DIR=reports\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// Registers cleanup so the variable loaded below does not leak.
	t.Setenv("SCRAPER_OUTPUT_DIR", "")
	os.Unsetenv("SCRAPER_OUTPUT_DIR")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got, _ := EnvString("SCRAPER_OUTPUT_DIR"); got != "reports" {
		t.Fatalf("SCRAPER_OUTPUT_DIR = %q, want reports", got)
	}
}
