package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
)

type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	SessionFile    string
	RateLimitRPM   int
	MaxUploadSize  int64
	LogLevel       string
	OutputFormat   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		SessionFile:    getEnv("SESSION_FILE", defaultSessionFile()),
		RateLimitRPM:   getInt("RATE_LIMIT_RPM", 60),
		MaxUploadSize:  getInt64("MAX_UPLOAD_SIZE", 10*1024*1024),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		OutputFormat:   strings.ToLower(getEnv("OUTPUT_FORMAT", OutputTable)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if strings.TrimSpace(c.SessionFile) == "" {
		return fmt.Errorf("SESSION_FILE cannot be empty")
	}

	if c.RateLimitRPM < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM cannot be negative")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.OutputFormat != OutputTable && c.OutputFormat != OutputJSON {
		return fmt.Errorf("OUTPUT_FORMAT must be %q or %q", OutputTable, OutputJSON)
	}

	return nil
}

func defaultSessionFile() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return filepath.Join(dir, "talentmatch", "session.json")
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".", ".talentmatch-session.json")
	}

	return filepath.Join(home, ".config", "talentmatch", "session.json")
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}
