package config

import (
	"log/slog"
	"strings"
	"testing"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv(env(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Port != "8080" || c.LogFormat != "json" || c.DefaultCurrency != "RUB" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if !c.TaxAutoTransfer || c.RunMigrations || c.DevSeed {
		t.Fatalf("unexpected flag defaults: %+v", c)
	}
	if c.LogLevel != slog.LevelInfo {
		t.Fatalf("level = %v", c.LogLevel)
	}
	if c.Addr() != ":8080" {
		t.Fatalf("addr = %q", c.Addr())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	c, err := FromEnv(env(map[string]string{
		"PORT":              "9090",
		"DATABASE_URL":      "postgres://localhost/homeledger",
		"LOG_LEVEL":         "DEBUG",
		"LOG_FORMAT":        "Text",
		"DEFAULT_CURRENCY":  "usd",
		"TAX_AUTO_TRANSFER": "false",
		"RUN_MIGRATIONS":    "yes",
		"DEV_SEED":          "1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Port != "9090" || c.LogFormat != "text" || c.DefaultCurrency != "USD" || c.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.TaxAutoTransfer || !c.RunMigrations || !c.DevSeed {
		t.Fatalf("unexpected flags: %+v", c)
	}
}

func TestFromEnvAggregatesErrors(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"PORT":           "http",
		"LOG_FORMAT":     "xml",
		"RUN_MIGRATIONS": "maybe",
	}))
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"PORT", "LOG_FORMAT", "RUN_MIGRATIONS"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestMigrationsNeedDatabase(t *testing.T) {
	_, err := FromEnv(env(map[string]string{"RUN_MIGRATIONS": "true"}))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}
