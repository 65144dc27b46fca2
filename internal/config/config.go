package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the smart resource fetcher.
type Config struct {
	Port      int
	Version   string
	Backend   BackendConfig
	Search    SearchConfig
	Agent     AgentConfig
	Cache     CacheConfig
	Dataset   DatasetConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// BackendConfig points at the Ollama-compatible language model backend.
type BackendConfig struct {
	Host           string
	Model          string
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
}

type SearchConfig struct {
	ResultCap          int
	AmbiguityThreshold float64
}

type AgentConfig struct {
	Timeout       time.Duration
	MaxTokens     int
	MaxIterations int
}

// CacheConfig controls the on-disk completion cache.
type CacheConfig struct {
	Enabled bool
	Dir     string
}

type DatasetConfig struct {
	Size      int
	Seed      int64
	MinPerTag int
}

type LogConfig struct {
	Level  string
	Format string // console | json
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present; real
// environment variables win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:    envInt("SMARTFETCHER_PORT", 8000),
		Version: envStr("SMARTFETCHER_VERSION", "1.0.0"),
		Backend: BackendConfig{
			Host:           envStr("OLLAMA_HOST", "http://localhost:11434"),
			Model:          envStr("OLLAMA_MODEL", "gpt-oss:20b"),
			ProbeTimeout:   envSeconds("BACKEND_PROBE_TIMEOUT_SEC", 5),
			RequestTimeout: envSeconds("BACKEND_REQUEST_TIMEOUT_SEC", 120),
		},
		Search: SearchConfig{
			ResultCap:          envInt("NL_SEARCH_RESULT_CAP", 5),
			AmbiguityThreshold: envFloat("NL_AMBIGUITY_THRESHOLD", 0.15),
		},
		Agent: AgentConfig{
			Timeout:       envSeconds("AGENT_TIMEOUT_SEC", 5),
			MaxTokens:     envInt("AGENT_MAX_TOKENS", 1024),
			MaxIterations: envInt("AGENT_MAX_ITERATIONS", 5),
		},
		Cache: CacheConfig{
			Enabled: envBool("RESPONSE_CACHE_ENABLED", true),
			Dir:     envStr("RESPONSE_CACHE_DIR", "./.llm_cache"),
		},
		Dataset: DatasetConfig{
			Size:      envInt("DATASET_SIZE", 500),
			Seed:      int64(envInt("DATASET_SEED", 42)),
			MinPerTag: envInt("DATASET_MIN_PER_TAG", 30),
		},
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "console"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "smart-fetcher"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}

// envBool accepts true/1/yes/on in any case; everything else is false.
func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
