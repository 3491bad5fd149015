// Package config loads the service configuration from the environment
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Environment is the deployment stage the service runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// ParseEnvironment accepts the short names and their long forms
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: dev, staging, prod, test, got: %s", s)
}

func (e Environment) String() string {
	return string(e)
}

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	// Database
	DBDriver string
	DBDSN    string

	// AdminToken enables the write API when non empty
	AdminToken          string
	SeedOnStart         bool
	StatsRefreshMinutes int
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", string(EnvDevelopment)))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:                getEnvWithDefault("PORT", "8000"),
		Address:             getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:                 env,
		LogLevel:            strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogRetentionWeeks:   getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:      getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 100*1024*1024),
		MaxRequestBody:      getInt64EnvWithDefault("MAX_REQUEST_BODY", 1024*1024),
		MaxHeaderSize:       getInt64EnvWithDefault("MAX_HEADER_SIZE", 1024*1024),
		DBDriver:            strings.ToLower(getEnvWithDefault("DB_DRIVER", "sqlite")),
		DBDSN:               getEnvWithDefault("DB_DSN", "druginteractions.db"),
		AdminToken:          os.Getenv("ADMIN_TOKEN"),
		SeedOnStart:         getBoolEnvWithDefault("SEED_ON_START", false),
		StatsRefreshMinutes: getIntEnvWithDefault("STATS_REFRESH_MINUTES", 15),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// AdminEnabled reports whether the write API should be mounted
func (c *Config) AdminEnabled() bool {
	return c.AdminToken != ""
}

func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}
	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}
	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}
	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}
	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}
	if err := validateDatabase(cfg.DBDriver, cfg.DBDSN); err != nil {
		return fmt.Errorf("invalid database settings: %w", err)
	}
	if err := validateAdminToken(cfg.AdminToken); err != nil {
		return fmt.Errorf("invalid ADMIN_TOKEN: %w", err)
	}
	if err := validateRefreshMinutes(cfg.StatsRefreshMinutes); err != nil {
		return fmt.Errorf("invalid STATS_REFRESH_MINUTES: %w", err)
	}
	return nil
}

func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1024 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1024 and 65535, got %d", portNum)
	}
	return nil
}

func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}
	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// 0.0.0.0 is accepted for containers, public addresses are not
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, bind to a private or loopback address", address)
	}
	return nil
}

func validateEnv(env Environment) error {
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction, EnvTest:
		return nil
	case "":
		return fmt.Errorf("ENV cannot be empty")
	}
	return fmt.Errorf("ENV must be one of: dev, staging, prod, test, got: %s", env)
}

func validateLogLevel(logLevel string) error {
	switch logLevel {
	case "debug", "info", "warn", "error":
		return nil
	case "":
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}
	return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", logLevel)
}

func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}
	if size > 100*1024*1024 {
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}
	return nil
}

func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}
	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}
	return nil
}

func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}
	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}
	return nil
}

// validateDatabase checks the driver name and that postgres gets an explicit DSN
func validateDatabase(driver, dsn string) error {
	switch driver {
	case "sqlite":
		return nil
	case "postgres":
		if dsn == "" || dsn == "druginteractions.db" {
			return fmt.Errorf("DB_DSN must be a postgres connection string when DB_DRIVER=postgres")
		}
		return nil
	}
	return fmt.Errorf("DB_DRIVER must be one of: sqlite, postgres, got: %s", driver)
}

func validateAdminToken(token string) error {
	if token == "" {
		return nil
	}
	if len(token) < 16 {
		return fmt.Errorf("ADMIN_TOKEN must be at least 16 characters")
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return fmt.Errorf("ADMIN_TOKEN cannot contain whitespace")
	}
	return nil
}

func validateRefreshMinutes(minutes int) error {
	if minutes < 1 || minutes > 24*60 {
		return fmt.Errorf("STATS_REFRESH_MINUTES must be between 1 and 1440, got: %d", minutes)
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"DB_DRIVER",
		"DB_DSN",
		"ADMIN_TOKEN",
		"SEED_ON_START",
		"STATS_REFRESH_MINUTES",
	}
}
