package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
	// EnvDevelopment represents the development environment.
	EnvDevelopment = "development"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Env       string `envconfig:"ENV" default:"development"`
	Port      string `envconfig:"PORT" default:"8080"`
	PublicDir string `envconfig:"PUBLIC_DIR" default:"./public"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage settings. An empty DataDir means the per-user default.
	DataDir    string `envconfig:"DATA_DIR"`
	SamplesDir string `envconfig:"SAMPLES_DIR" default:"samples"`

	// Session settings
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	// PlaybackTimeout ends a browser playback that never reported back. It is
	// added to the length of a recording.
	PlaybackTimeout time.Duration `envconfig:"PLAYBACK_TIMEOUT" default:"30s"`

	// Upload settings
	UploadAttempts uint          `envconfig:"UPLOAD_ATTEMPTS" default:"3"`
	UploadDelay    time.Duration `envconfig:"UPLOAD_DELAY" default:"200ms"`
	DryRun         bool          `envconfig:"DRY_RUN" default:"false"`
	DryRunDelay    time.Duration `envconfig:"DRY_RUN_DELAY" default:"1500ms"`

	// Content services. Keys fall back to the system keychain.
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	Transcribe      bool   `envconfig:"TRANSCRIBE" default:"false"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	var errs []error

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}

	if c.PlaybackTimeout < 0 {
		errs = append(errs, errors.New("PLAYBACK_TIMEOUT must not be negative"))
	}

	if c.UploadAttempts == 0 {
		errs = append(errs, errors.New("UPLOAD_ATTEMPTS must be at least 1"))
	}

	if c.CSPMode != "strict" && c.CSPMode != "relaxed" {
		errs = append(errs, fmt.Errorf("CSP_MODE must be strict or relaxed, got %q", c.CSPMode))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// BuildCSP constructs Content Security Policy based on mode.
// media-src allows blob: so the browser can replay its own recording.
func BuildCSP(mode string) string {
	if mode == "strict" {
		// Production CSP
		return "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self'; " +
			"img-src 'self' data:; " +
			"media-src 'self' blob:; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"media-src 'self' blob: data:"
}
