package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
	CORS     CORSConfig
	Logging  LoggingConfig
	Venues   VenueConfig
	Storage  StorageConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string // Full PostgreSQL URL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int
	Host        string
	Environment string
}

// SecurityConfig holds session and operator access settings
type SecurityConfig struct {
	JWTSecret      string
	AdminEmails    []string
	ImportSecret   string
	GoogleClientID string
	GoogleJWKSURL  string
	AuthRateLimit  int // identity exchanges per IP per minute, 0 disables
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// VenueConfig holds product rules for venue records
type VenueConfig struct {
	DefaultDestinationSlug string
	DiscountPolicy         string // fraction, legacy-percent
}

// StorageConfig holds the S3 bucket used for venue images
type StorageConfig struct {
	Bucket          string
	Region          string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicReadACL   bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	if err := cfg.loadSecurity(); err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}
	cfg.loadCORS()
	cfg.loadLogging()
	cfg.loadVenues()
	cfg.loadStorage()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that do not serve
// HTTP.
func LoadDatabase() (DatabaseConfig, error) {
	var c Config
	if err := c.loadDatabase(); err != nil {
		return DatabaseConfig{}, err
	}
	if c.Database.URL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}
	return c.Database, nil
}

func (c *Config) loadDatabase() error {
	// Try to load DATABASE_URL first
	c.Database.URL = os.Getenv("DATABASE_URL")

	// If not present, construct from individual parameters
	if c.Database.URL == "" {
		c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
		c.Database.User = os.Getenv("DB_USER")
		c.Database.Password = os.Getenv("DB_PASSWORD")
		c.Database.Name = os.Getenv("DB_NAME")
		c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

		port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		c.Database.Port = port

		if c.Database.Host != "" && c.Database.User != "" && c.Database.Name != "" {
			c.Database.URL = fmt.Sprintf(
				"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
				c.Database.User,
				c.Database.Password,
				c.Database.Host,
				c.Database.Port,
				c.Database.Name,
				c.Database.SSLMode,
			)
		}
	}

	return nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	c.Server.Environment = strings.ToLower(firstEnv("ENV", "NODE_ENV"))
	return nil
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")
	c.Security.AdminEmails = splitList(os.Getenv("ADMIN_EMAILS"), true)
	c.Security.ImportSecret = os.Getenv("ADMIN_IMPORT_SECRET")
	c.Security.GoogleClientID = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID"))
	c.Security.GoogleJWKSURL = getEnvOrDefault("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs")

	limit, err := strconv.Atoi(getEnvOrDefault("AUTH_RATE_LIMIT", "10"))
	if err != nil {
		return fmt.Errorf("invalid AUTH_RATE_LIMIT: %w", err)
	}
	c.Security.AuthRateLimit = limit
	return nil
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv != "" {
		c.CORS.AllowedOrigins = splitList(originsEnv, false)
	} else {
		// Default for local development
		c.CORS.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:8888",
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

func (c *Config) loadVenues() {
	c.Venues.DefaultDestinationSlug = strings.ToLower(strings.TrimSpace(getEnvOrDefault("DEFAULT_DESTINATION_SLUG", "ahangama")))
	c.Venues.DiscountPolicy = getEnvOrDefault("DISCOUNT_POLICY", "legacy-percent")
}

// S3_* names win over AWS_* because some hosts reserve the AWS_ prefix.
func (c *Config) loadStorage() {
	c.Storage.Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET"))
	c.Storage.Region = strings.TrimSpace(firstEnv("S3_REGION", "AWS_REGION"))
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	c.Storage.PublicBaseURL = strings.TrimSpace(os.Getenv("S3_PUBLIC_BASE_URL"))
	c.Storage.AccessKeyID = strings.TrimSpace(firstEnv("S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"))
	c.Storage.SecretAccessKey = strings.TrimSpace(firstEnv("S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"))
	c.Storage.Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	c.Storage.PublicReadACL = isTruthy(os.Getenv("S3_USE_ACL_PUBLIC_READ"))
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	if c.Database.URL == "" {
		errors = append(errors, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}

	if c.Security.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.Security.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.AuthRateLimit < 0 {
		errors = append(errors, "AUTH_RATE_LIMIT must not be negative")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if c.Venues.DefaultDestinationSlug == "" {
		errors = append(errors, "DEFAULT_DESTINATION_SLUG must not be empty")
	}
	validPolicies := map[string]bool{"fraction": true, "legacy-percent": true}
	if !validPolicies[c.Venues.DiscountPolicy] {
		errors = append(errors, "DISCOUNT_POLICY must be one of: fraction, legacy-percent")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
func (c *Config) ShutdownTimeout() time.Duration {
	return 10 * time.Second
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func splitList(raw string, lower bool) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if lower {
			part = strings.ToLower(part)
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
