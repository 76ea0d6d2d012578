package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rubiojr/tankerkoenig/pkg/api"
)

const (
	EnvAPIKey     = "TANKERKOENIG_API_KEY"
	EnvBaseURL    = "TANKERKOENIG_BASE_URL"
	EnvDB         = "TANKERKOENIG_DB"
	EnvTimeout    = "TANKERKOENIG_TIMEOUT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvServerPort = "SERVER_PORT"

	DefaultDB = "fuel_prices.db"
)

type Config struct {
	APIKey     string
	BaseURL    string
	DBPath     string
	Timeout    time.Duration
	LogLevel   string
	ServerPort string
}

// MissingEnvironmentKey is returned by Secret when neither KEY nor KEY_FILE
// is set.
type MissingEnvironmentKey string

func (k MissingEnvironmentKey) Error() string {
	return fmt.Sprintf("%s environment variable not set", string(k))
}

// Load reads the given dotenv files (".env" when none are given, missing
// files are ignored) and then the environment. Variables already present in
// the environment win over dotenv values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}

	apiKey, err := Secret(EnvAPIKey)
	if err != nil {
		if _, missing := err.(MissingEnvironmentKey); !missing {
			return nil, err
		}
	}

	timeout := getEnvAsInt(EnvTimeout, int(api.DefaultTimeout/time.Second))
	if timeout <= 0 {
		return nil, fmt.Errorf("%s must be a positive number of seconds", EnvTimeout)
	}

	return &Config{
		APIKey:     apiKey,
		BaseURL:    getEnv(EnvBaseURL, api.DefaultBaseURL),
		DBPath:     getEnv(EnvDB, DefaultDB),
		Timeout:    time.Duration(timeout) * time.Second,
		LogLevel:   getEnv(EnvLogLevel, "info"),
		ServerPort: getEnv(EnvServerPort, "8080"),
	}, nil
}

// Secret reads key from the environment, falling back to the contents of the
// file named by key+"_FILE".
func Secret(key string) (string, error) {
	value := os.Getenv(key)
	path := os.Getenv(key + "_FILE")
	if value == "" && path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("error reading %s_FILE: %w", key, err)
		}
		value = string(content)
	}

	if value == "" {
		return "", MissingEnvironmentKey(key)
	}
	return strings.TrimSpace(value), nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}
