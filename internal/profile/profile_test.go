package profile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

var envKeys = []string{
	"DIVINECANVAS_AI_API_KEY",
	"DIVINECANVAS_AI_BASE_URL",
	"DIVINECANVAS_AI_MODEL",
	"DIVINECANVAS_AI_ROUTER_MODEL",
	"DIVINECANVAS_TOOL_MODE_AGENTS",
	"DIVINECANVAS_DIGEST_CHUNK_SIZE",
	"DIVINECANVAS_DIGEST_CONCURRENCY",
	"DIVINECANVAS_CACHE_REDIS_ADDR",
	"DIVINECANVAS_CACHE_REDIS_PASSWORD",
	"DIVINECANVAS_CACHE_REDIS_DB",
	"DIVINECANVAS_CACHE_REDIS_PREFIX",
	"DIVINECANVAS_RATE_LIMIT_RPS",
	"DIVINECANVAS_RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

// TestProfileDefaults checks the values FromEnv falls back to.
func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"AIBaseURL default", "https://api.deepseek.com", profile.AIBaseURL},
		{"AILLMModel default", "deepseek-chat", profile.AILLMModel},
		{"AIRouterModel default", "", profile.AIRouterModel},
		{"DigestChunkSize default", "20000", strconv.Itoa(profile.DigestChunkSize)},
		{"DigestConcurrency default", "3", strconv.Itoa(profile.DigestConcurrency)},
		{"CacheRedisPrefix default", "divinecanvas:", profile.CacheRedisPrefix},
		{"RateLimitBurst default", "20", strconv.Itoa(profile.RateLimitBurst)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if len(profile.ToolModeAgents) != 2 || profile.ToolModeAgents[0] != "drawio" || profile.ToolModeAgents[1] != "infographic" {
		t.Errorf("unexpected default tool mode agents: %v", profile.ToolModeAgents)
	}
	if profile.RateLimitRPS != 10 {
		t.Errorf("expected RateLimitRPS=10, got %v", profile.RateLimitRPS)
	}
}

// TestProfileFromEnv checks that each variable lands in its field.
func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "api key",
			envVar:   "DIVINECANVAS_AI_API_KEY",
			envValue: "sk-test",
			field:    func(p *Profile) string { return p.AIAPIKey },
			expected: "sk-test",
		},
		{
			name:     "router model",
			envVar:   "DIVINECANVAS_AI_ROUTER_MODEL",
			envValue: "qwen-turbo",
			field:    func(p *Profile) string { return p.AIRouterModel },
			expected: "qwen-turbo",
		},
		{
			name:     "digest concurrency",
			envVar:   "DIVINECANVAS_DIGEST_CONCURRENCY",
			envValue: "8",
			field:    func(p *Profile) string { return strconv.Itoa(p.DigestConcurrency) },
			expected: "8",
		},
		{
			name:     "invalid integer falls back",
			envVar:   "DIVINECANVAS_DIGEST_CHUNK_SIZE",
			envValue: "lots",
			field:    func(p *Profile) string { return strconv.Itoa(p.DigestChunkSize) },
			expected: "20000",
		},
		{
			name:     "redis addr",
			envVar:   "DIVINECANVAS_CACHE_REDIS_ADDR",
			envValue: "localhost:6379",
			field:    func(p *Profile) string { return p.CacheRedisAddr },
			expected: "localhost:6379",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()

			if got := tt.field(profile); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" DrawIO, ,infographic ,")
	if len(got) != 2 || got[0] != "drawio" || got[1] != "infographic" {
		t.Errorf("unexpected split: %v", got)
	}
	if SplitList("") != nil {
		t.Errorf("expected nil for empty input")
	}
}

func TestIsAIEnabled(t *testing.T) {
	if (&Profile{}).IsAIEnabled() {
		t.Error("expected AI disabled without key or base URL")
	}
	if !(&Profile{AIAPIKey: "k"}).IsAIEnabled() {
		t.Error("expected AI enabled with key")
	}
}

func TestValidate(t *testing.T) {
	t.Run("sqlite dsn derived from data dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")
		p := &Profile{Mode: "dev", Data: dir}
		if err := p.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
		if p.Driver != "sqlite" {
			t.Errorf("expected sqlite driver, got %q", p.Driver)
		}
		if p.DSN != filepath.Join(dir, "divinecanvas_dev.db") {
			t.Errorf("unexpected dsn %q", p.DSN)
		}
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("data dir not created: %v", err)
		}
	})

	t.Run("unknown mode becomes demo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Data: t.TempDir()}
		if err := p.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
		if p.Mode != "demo" {
			t.Errorf("expected demo, got %q", p.Mode)
		}
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "postgres", Data: t.TempDir()}
		if err := p.Validate(); err == nil {
			t.Error("expected error for postgres without dsn")
		}
	})

	t.Run("mysql rejected", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}
		if err := p.Validate(); err == nil {
			t.Error("expected error for mysql")
		}
	})
}
