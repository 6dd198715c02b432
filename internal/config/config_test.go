package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{"go duration", "1500ms", 1500 * time.Millisecond},
		{"bare milliseconds", "250", 250 * time.Millisecond},
		{"garbage falls back", "soon", time.Second},
		{"empty falls back", "", time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv("TEST_DURATION", tc.envValue)
				defer os.Unsetenv("TEST_DURATION")
			}

			result := getEnvAsDurationOrDefault("TEST_DURATION", time.Second)
			if result != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsListOrDefault(t *testing.T) {
	os.Unsetenv("TEST_LIST")
	if got := getEnvAsListOrDefault("TEST_LIST", []string{"gemini"}); !reflect.DeepEqual(got, []string{"gemini"}) {
		t.Errorf("Expected default list, got %v", got)
	}

	os.Setenv("TEST_LIST", " Gemini , rag,, ")
	defer os.Unsetenv("TEST_LIST")
	if got := getEnvAsListOrDefault("TEST_LIST", nil); !reflect.DeepEqual(got, []string{"gemini", "rag"}) {
		t.Errorf("Expected [gemini rag], got %v", got)
	}

	// An explicitly empty value disables guarding on every model.
	os.Setenv("TEST_LIST", "")
	if got := getEnvAsListOrDefault("TEST_LIST", []string{"gemini"}); len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
}

func TestGetEnvAsBoolOrDefault(t *testing.T) {
	os.Setenv("TEST_BOOL", "false")
	defer os.Unsetenv("TEST_BOOL")

	if getEnvAsBoolOrDefault("TEST_BOOL", true) {
		t.Error("Expected false from env")
	}

	os.Setenv("TEST_BOOL", "maybe")
	if !getEnvAsBoolOrDefault("TEST_BOOL", true) {
		t.Error("Expected default for unparsable value")
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "BACKEND_URL", "MIN_REQUEST_INTERVAL", "RATE_LIMITED_MODELS", "GEMINI_MODEL"} {
		os.Unsetenv(key)
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %q", cfg.Port)
	}
	if cfg.BackendURL != "http://127.0.0.1:5000" {
		t.Errorf("Unexpected backend URL %q", cfg.BackendURL)
	}
	if cfg.MinRequestInterval != time.Second {
		t.Errorf("Expected 1s interval, got %s", cfg.MinRequestInterval)
	}
	if !reflect.DeepEqual(cfg.RateLimitedModels, []string{"gemini"}) {
		t.Errorf("Expected only gemini to be guarded, got %v", cfg.RateLimitedModels)
	}
	if cfg.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("Unexpected model %q", cfg.GeminiModel)
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	os.Setenv("BACKEND_URL", "http://flask:5000/")
	defer os.Unsetenv("BACKEND_URL")

	if got := Load().BackendURL; got != "http://flask:5000" {
		t.Errorf("Expected trailing slash trimmed, got %q", got)
	}
}
