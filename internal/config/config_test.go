package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsWithoutKeys(t *testing.T) {
	for _, k := range []string{"RAPIDAPI_KEY", "RAPIDAPI_KEY_1", "OPENAI_API_KEY", "GEMINI_API_KEY", "MIN_VIEWS", "MAX_VIEWS", "MAX_AGE_DAYS", "PORT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected missing keys to be legal, got %v", err)
	}
	if cfg.Pipeline.MinViews != 50_000 || cfg.Pipeline.MaxViews != 10_000_000 || cfg.Pipeline.MaxAgeDays != 45 {
		t.Fatalf("unexpected filter defaults: %+v", cfg.Pipeline)
	}
	if len(cfg.Scraper.APIKeys) != 0 {
		t.Fatalf("expected no scraper keys, got %v", cfg.Scraper.APIKeys)
	}
}

func TestLoadOverridesThresholdsAndCollectsKeys(t *testing.T) {
	t.Setenv("MIN_VIEWS", "10_000")
	t.Setenv("MAX_VIEWS", "2000000")
	t.Setenv("VENDOR_MIN_INTERVAL", "250ms")
	t.Setenv("RAPIDAPI_KEY", "k0")
	t.Setenv("RAPIDAPI_KEY_1", "k1")
	t.Setenv("RAPIDAPI_KEY_2", "k0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.MinViews != 10_000 || cfg.Pipeline.MaxViews != 2_000_000 {
		t.Fatalf("expected overridden thresholds, got %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.MinCallInterval != 250*time.Millisecond {
		t.Fatalf("expected 250ms interval, got %v", cfg.Pipeline.MinCallInterval)
	}
	if len(cfg.Scraper.APIKeys) != 2 || cfg.Scraper.APIKeys[0] != "k0" || cfg.Scraper.APIKeys[1] != "k1" {
		t.Fatalf("expected deduplicated keys [k0 k1], got %v", cfg.Scraper.APIKeys)
	}
}

func TestValidateRejectsInvertedBounds(t *testing.T) {
	t.Setenv("MIN_VIEWS", "500")
	t.Setenv("MAX_VIEWS", "100")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for MIN_VIEWS > MAX_VIEWS")
	}
}

func TestPostgresDSNOmitsEmptyPassword(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Database: "d", SSLMode: "disable"}
	if got := p.DSN(); got != "host=db port=5432 user=u dbname=d sslmode=disable" {
		t.Fatalf("unexpected DSN: %s", got)
	}
}
