package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds scraper configuration.
type Config struct {
	CategoryURLs     []string      `yaml:"category_urls"`
	MediaBaseURL     string        `yaml:"media_base_url"`
	Parallelism      int           `yaml:"parallelism"`
	Timeout          time.Duration `yaml:"timeout"`
	UserAgent        string        `yaml:"user_agent"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt"`
	StoreDriver      string        `yaml:"store_driver"` // sqlite, csv, or jsonl
	StorePath        string        `yaml:"store_path"`
	OutputDir        string        `yaml:"output_dir"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	Verbose          bool          `yaml:"verbose"`
}

// DefaultConfig returns the two demo categories and local outputs.
func DefaultConfig() *Config {
	return &Config{
		CategoryURLs: []string{
			"https://books.toscrape.com/catalogue/category/books/travel_2/index.html",
			"https://books.toscrape.com/catalogue/category/books/mystery_3/index.html",
		},
		MediaBaseURL:     "https://books.toscrape.com/media/",
		Parallelism:      4,
		Timeout:          10 * time.Second,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		StoreDriver:      "sqlite",
		StorePath:        "output/books.db",
		OutputDir:        "output",
		MetricsAddr:      "",
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if len(c.CategoryURLs) == 0 {
		return fmt.Errorf("at least one category URL is required")
	}
	for _, raw := range c.CategoryURLs {
		if err := validateAbsoluteURL("category URL", raw); err != nil {
			return err
		}
	}
	if err := validateAbsoluteURL("media base URL", c.MediaBaseURL); err != nil {
		return err
	}

	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	switch c.StoreDriver {
	case "sqlite", "csv", "jsonl":
	default:
		return fmt.Errorf("store driver must be sqlite, csv, or jsonl")
	}
	if c.StorePath == "" {
		return fmt.Errorf("store path cannot be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}

	return nil
}

func validateAbsoluteURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host: %q", name, raw)
	}
	return nil
}

// Load overlays the YAML file at path onto cfg. Keys absent from the file
// keep their current values.
func Load(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnvFile exports the variables of a .env file without overriding
// ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with SCRAPER_* environment variables.
func ApplyEnv(cfg *Config) error {
	if value, ok := EnvString("SCRAPER_CATEGORY_URLS"); ok {
		cfg.CategoryURLs = splitList(value)
	}
	if value, ok := EnvString("SCRAPER_MEDIA_BASE_URL"); ok {
		cfg.MediaBaseURL = value
	}
	if value, ok, err := EnvInt("SCRAPER_PARALLEL"); err != nil {
		return err
	} else if ok {
		cfg.Parallelism = value
	}
	if value, ok, err := EnvDuration("SCRAPER_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.Timeout = value
	}
	if value, ok := EnvString("SCRAPER_STORE_DRIVER"); ok {
		cfg.StoreDriver = strings.ToLower(value)
	}
	if value, ok := EnvString("SCRAPER_STORE_PATH"); ok {
		cfg.StorePath = value
	}
	if value, ok := EnvString("SCRAPER_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	return nil
}

// EnvString returns a trimmed, non-empty environment value.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses an integer environment value.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvDuration parses a duration environment value such as "15s".
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, true, nil
}

func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if field != "" {
			out = append(out, field)
		}
	}
	return out
}
