package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Story backend (Flask) and its scheduler
	BackendURL   string
	SchedulerURL string

	// Gemini AI
	GeminiAPIKey      string
	GeminiModel       string
	GeminiTemperature float32

	// Request guard
	MinRequestInterval time.Duration
	RateLimitedModels  []string
	APIRateLimitRPM    int

	// Redis (optional)
	RedisURL string

	// Frontend
	FrontendURL string

	// Logging
	LogLevel  string
	LogFormat string

	// Metrics
	MetricsEnabled bool

	ProjectsCacheTTL time.Duration
	UpstreamTimeout  time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Env:                getEnvOrDefault("ENV", "development"),
		BackendURL:         strings.TrimRight(getEnvOrDefault("BACKEND_URL", "http://127.0.0.1:5000"), "/"),
		SchedulerURL:       strings.TrimRight(getEnvOrDefault("SCHEDULER_URL", "http://127.0.0.1:5001"), "/"),
		GeminiAPIKey:       getEnvOrDefault("GOOGLE_GENERATIVE_AI_API_KEY", ""),
		GeminiModel:        getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTemperature:  float32(getEnvAsFloatOrDefault("GEMINI_TEMPERATURE", 0.3)),
		MinRequestInterval: getEnvAsDurationOrDefault("MIN_REQUEST_INTERVAL", time.Second),
		RateLimitedModels:  getEnvAsListOrDefault("RATE_LIMITED_MODELS", []string{"gemini"}),
		APIRateLimitRPM:    getEnvAsIntOrDefault("API_RATE_LIMIT_RPM", 120),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "console"),
		MetricsEnabled:     getEnvAsBoolOrDefault("METRICS_ENABLED", true),
		ProjectsCacheTTL:   getEnvAsDurationOrDefault("PROJECTS_CACHE_TTL", time.Minute),
		UpstreamTimeout:    getEnvAsDurationOrDefault("UPSTREAM_TIMEOUT", 60*time.Second),
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsDurationOrDefault accepts Go durations ("1500ms") or bare milliseconds ("1500").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
