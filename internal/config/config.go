// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	Auth      AuthConfig
	Sweep     SweepConfig
	Retry     RetryConfig
	RateLimit RateLimitConfig
	Calendar  CalendarConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig selects and locates the event store.
type StorageConfig struct {
	// DataPath holds the database files and auth.key (default: ~/HabitLeague/data)
	DataPath string
	// Driver is "badger" (default) or "sqlite"
	Driver string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins (default: *)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// TokenKey is the hex PASETO v4 symmetric key shared with the auth service.
	// Empty means load or generate {data}/auth.key.
	TokenKey string
	// CronAPIKey guards the sweep endpoints; empty leaves them to authenticated users.
	CronAPIKey string
}

// SweepConfig holds scheduled sweep configuration.
type SweepConfig struct {
	// Interval between background sweeps; 0 disables the job (default: 5m)
	Interval time.Duration
	// Workers bounds concurrent competition recomputes (default: 4)
	Workers int
	// ParticipantWorkers bounds concurrent participant recomputes per competition (default: 4)
	ParticipantWorkers int
	// CompetitionTimeout caps one competition's recompute (default: 30s)
	CompetitionTimeout time.Duration
}

// RetryConfig controls retries of transient store failures.
type RetryConfig struct {
	Attempts int           // Total attempts including the first (default: 3)
	Backoff  time.Duration // Base backoff, doubled per attempt (default: 100ms)
}

// RateLimitConfig throttles forced recomputes per user.
type RateLimitConfig struct {
	RecomputePerMinute int // default: 6
	RecomputeBurst     int // default: 3
}

// CalendarConfig defines which calendar day "today" is.
type CalendarConfig struct {
	Location *time.Location
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for database files")
	storeDriver := flag.String("store-driver", "", "Event store driver (badger, sqlite)")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flag.String("cors-allowed-origins", "", "Comma-separated CORS origins (default: *)")

	// Auth flags
	tokenKey := flag.String("auth-token-key", "", "Hex PASETO v4 key shared with the auth service")
	cronKey := flag.String("cron-api-key", "", "API key required by the sweep endpoints")

	// Sweep flags
	sweepInterval := flag.String("sweep-interval", "", "Background sweep interval, 0 disables (default: 5m)")
	sweepWorkers := flag.String("sweep-workers", "", "Concurrent competition recomputes (default: 4)")
	participantWorkers := flag.String("sweep-participant-workers", "", "Concurrent participant recomputes (default: 4)")
	competitionTimeout := flag.String("sweep-competition-timeout", "", "Per-competition recompute timeout (default: 30s)")

	// Retry and rate flags
	retryAttempts := flag.String("store-retry-attempts", "", "Attempts for transient store failures (default: 3)")
	retryBackoff := flag.String("store-retry-backoff", "", "Base retry backoff (default: 100ms)")
	recomputeRate := flag.String("recompute-rate-per-minute", "", "Forced recomputes per user per minute (default: 6)")
	recomputeBurst := flag.String("recompute-burst", "", "Forced recompute burst (default: 3)")

	tzName := flag.String("tz", "", "IANA time zone defining the calendar day (default: Local)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
			Driver:   strings.ToLower(getConfigValue(*storeDriver, "STORE_DRIVER", DriverBadger)),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			TokenKey:   getConfigValue(*tokenKey, "AUTH_TOKEN_KEY", ""),
			CronAPIKey: getConfigValue(*cronKey, "CRON_API_KEY", ""),
		},
		Sweep: SweepConfig{
			Workers:            getIntConfigValue(*sweepWorkers, "SWEEP_WORKERS", 4),
			ParticipantWorkers: getIntConfigValue(*participantWorkers, "SWEEP_PARTICIPANT_WORKERS", 4),
		},
		Retry: RetryConfig{
			Attempts: getIntConfigValue(*retryAttempts, "STORE_RETRY_ATTEMPTS", 3),
		},
		RateLimit: RateLimitConfig{
			RecomputePerMinute: getIntConfigValue(*recomputeRate, "RECOMPUTE_RATE_PER_MINUTE", 6),
			RecomputeBurst:     getIntConfigValue(*recomputeBurst, "RECOMPUTE_BURST", 3),
		},
	}

	// Parse durations.
	durations := []struct {
		target       *time.Duration
		flagValue    string
		envKey       string
		defaultValue string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Sweep.Interval, *sweepInterval, "SWEEP_INTERVAL", "5m"},
		{&cfg.Sweep.CompetitionTimeout, *competitionTimeout, "SWEEP_COMPETITION_TIMEOUT", "30s"},
		{&cfg.Retry.Backoff, *retryBackoff, "STORE_RETRY_BACKOFF", "100ms"},
	}
	for _, d := range durations {
		value := getConfigValue(d.flagValue, d.envKey, d.defaultValue)
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, value, err)
		}
		*d.target = parsed
	}

	// Resolve the calendar location.
	loc, err := loadLocation(getConfigValue(*tzName, "TZ_NAME", ""))
	if err != nil {
		return nil, err
	}
	cfg.Calendar.Location = loc

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite:
	default:
		return fmt.Errorf("invalid store driver: %s (must be badger or sqlite)", c.Storage.Driver)
	}

	if c.Sweep.Interval < 0 {
		return errors.New("sweep interval cannot be negative")
	}
	if c.Sweep.Workers < 1 || c.Sweep.ParticipantWorkers < 1 {
		return errors.New("sweep workers must be at least 1")
	}
	if c.Sweep.CompetitionTimeout <= 0 {
		return errors.New("sweep competition timeout must be positive")
	}

	if c.Retry.Attempts < 1 {
		return errors.New("store retry attempts must be at least 1")
	}
	if c.Retry.Backoff < 0 {
		return errors.New("store retry backoff cannot be negative")
	}

	if c.RateLimit.RecomputePerMinute < 1 || c.RateLimit.RecomputeBurst < 1 {
		return errors.New("recompute rate and burst must be at least 1")
	}

	return nil
}

// StorePath returns the database location for the configured driver.
func (c *Config) StorePath() string {
	if c.Storage.Driver == DriverSQLite {
		return filepath.Join(c.Storage.DataPath, "habitleague.db")
	}
	return filepath.Join(c.Storage.DataPath, "badger")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "HabitLeague", "data")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// loadLocation resolves an IANA zone name; empty means the process's local zone.
func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME %q: %w", name, err)
	}
	return loc, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
