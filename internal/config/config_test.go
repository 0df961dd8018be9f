package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unset removes key for the duration of the test.
func unset(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	for _, k := range []string{"STORAGE_DRIVER", "RATE_LIMIT", "WORKERS", "AI_MODEL", "REDIS_TTL", "HTTP_ADDR"} {
		unset(t, k)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StorageDriver != StorageMemory || cfg.RateLimit != 5 || cfg.Workers != 8 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.RedisTTL != 24*time.Hour || cfg.HTTPAddr != ":8080" || cfg.AIModel != "gemini-2.0-flash" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.AIEnabled() {
		t.Error("AI should be disabled without a key")
	}
}

func TestLoadDotEnv(t *testing.T) {
	unset(t, "TELEGRAM_TOKEN")
	unset(t, "PEXELS_API_KEY")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TELEGRAM_TOKEN=from-file\nPEXELS_API_KEY=px\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TelegramToken != "from-file" || cfg.PexelsKey != "px" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Run("token required", func(t *testing.T) {
		unset(t, "TELEGRAM_TOKEN")
		if _, err := Load(missing); err == nil {
			t.Error("expected error without TELEGRAM_TOKEN")
		}
	})

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo"}},
		{"postgres without db", map[string]string{"STORAGE_DRIVER": "postgres", "DB_USER": "", "DB_NAME": ""}},
		{"zero workers", map[string]string{"WORKERS": "0"}},
		{"negative limit", map[string]string{"RATE_LIMIT": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TELEGRAM_TOKEN", "123:abc")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(missing); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
