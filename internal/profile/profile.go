package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where divinecanvas stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// AI Configuration
	AIAPIKey      string // DIVINECANVAS_AI_API_KEY
	AIBaseURL     string // DIVINECANVAS_AI_BASE_URL (default: https://api.deepseek.com)
	AILLMModel    string // DIVINECANVAS_AI_MODEL (default: deepseek-chat)
	AIRouterModel string // DIVINECANVAS_AI_ROUTER_MODEL (default: same as AILLMModel)

	// ToolModeAgents lists strategies that run through a bound tool instead of
	// a direct stream. DIVINECANVAS_TOOL_MODE_AGENTS (default: drawio,infographic)
	ToolModeAgents []string

	// Document pre-digestion
	DigestChunkSize   int // DIVINECANVAS_DIGEST_CHUNK_SIZE (default: 20000)
	DigestConcurrency int // DIVINECANVAS_DIGEST_CONCURRENCY (default: 3)

	// Message log cache. Redis is optional; without an address only the
	// in-memory tier is used.
	CacheRedisAddr     string // DIVINECANVAS_CACHE_REDIS_ADDR
	CacheRedisPassword string // DIVINECANVAS_CACHE_REDIS_PASSWORD
	CacheRedisDB       int    // DIVINECANVAS_CACHE_REDIS_DB
	CacheRedisPrefix   string // DIVINECANVAS_CACHE_REDIS_PREFIX (default: divinecanvas:)

	// Per-client rate limit on generation endpoints.
	RateLimitRPS   float64 // DIVINECANVAS_RATE_LIMIT_RPS (default: 10)
	RateLimitBurst int     // DIVINECANVAS_RATE_LIMIT_BURST (default: 20)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an API key or a base URL is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != "" || p.AIBaseURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return n
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return f
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, strings.ToLower(item))
		}
	}
	return out
}

// FromEnv loads the AI, cache and rate limit configuration from environment
// variables. Server flags are bound by the command.
func (p *Profile) FromEnv() {
	p.AIAPIKey = os.Getenv("DIVINECANVAS_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("DIVINECANVAS_AI_BASE_URL", "https://api.deepseek.com")
	p.AILLMModel = getEnvOrDefault("DIVINECANVAS_AI_MODEL", "deepseek-chat")
	p.AIRouterModel = os.Getenv("DIVINECANVAS_AI_ROUTER_MODEL")

	p.ToolModeAgents = SplitList(getEnvOrDefault("DIVINECANVAS_TOOL_MODE_AGENTS", "drawio,infographic"))

	p.DigestChunkSize = getIntEnvOrDefault("DIVINECANVAS_DIGEST_CHUNK_SIZE", 20000)
	p.DigestConcurrency = getIntEnvOrDefault("DIVINECANVAS_DIGEST_CONCURRENCY", 3)

	p.CacheRedisAddr = os.Getenv("DIVINECANVAS_CACHE_REDIS_ADDR")
	p.CacheRedisPassword = os.Getenv("DIVINECANVAS_CACHE_REDIS_PASSWORD")
	p.CacheRedisDB = getIntEnvOrDefault("DIVINECANVAS_CACHE_REDIS_DB", 0)
	p.CacheRedisPrefix = getEnvOrDefault("DIVINECANVAS_CACHE_REDIS_PREFIX", "divinecanvas:")

	p.RateLimitRPS = getFloatEnvOrDefault("DIVINECANVAS_RATE_LIMIT_RPS", 10)
	p.RateLimitBurst = getIntEnvOrDefault("DIVINECANVAS_RATE_LIMIT_BURST", 20)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dataDir, 0770); err != nil {
			return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
		}
	} else if err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	if p.Data == "" {
		if p.Mode == "prod" {
			if runtime.GOOS == "windows" {
				p.Data = filepath.Join(os.Getenv("ProgramData"), "divinecanvas")
			} else {
				p.Data = "/var/opt/divinecanvas"
			}
		} else {
			p.Data = "."
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("divinecanvas_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
