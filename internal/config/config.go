package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultMaxUploadBytes = 10 << 20
	defaultLogLevel       = "info"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `validate:"required,numeric"`
	ShutdownGracePeriod  time.Duration `validate:"gte=0"`
	ReadHeaderTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout         time.Duration `validate:"gt=0"`
	IdleTimeout          time.Duration `validate:"gt=0"`
	EnableRequestLogging bool
	RateLimitRPS         float64 `validate:"gte=0"`
	RateLimitBurst       int     `validate:"gte=0"`

	// Clearance is the minimum gap kept between facing item boxes.
	Clearance float64 `validate:"gt=0,lte=10"`

	LogLevel      string `validate:"oneof=debug info warn error"`
	LogFile       string
	LogMaxSizeMB  int `validate:"gte=0"`
	LogMaxBackups int `validate:"gte=0"`
	LogMaxAgeDays int `validate:"gte=0"`

	// AuditDir enables the compressed audit archive when set.
	AuditDir       string
	MaxUploadBytes int64 `validate:"gt=0"`
	MetricsEnabled bool

	// Seed files are imported at startup when set.
	SeedContainersFile string
	SeedItemsFile      string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Planner              yamlPlanner   `yaml:"planner"`
	Logging              yamlLogging   `yaml:"logging"`
	AuditDir             string        `yaml:"audit_dir"`
	MaxUploadBytes       int64         `yaml:"max_upload_bytes"`
	MetricsEnabled       *bool         `yaml:"metrics_enabled"`
	Seed                 yamlSeed      `yaml:"seed"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlPlanner struct {
	Clearance float64 `yaml:"clearance"`
}

type yamlLogging struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type yamlSeed struct {
	Containers string `yaml:"containers"`
	Items      string `yaml:"items"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	Clearance      *float64
	LogLevel       *string
	LogFile        *string
	AuditDir       *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables (lowest explicit source)
	applyEnvConfig(&cfg)

	// Load from YAML file if specified (overrides env)
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Clearance:            geometry.DefaultClearance,
		LogLevel:             defaultLogLevel,
		LogMaxSizeMB:         100,
		LogMaxBackups:        5,
		LogMaxAgeDays:        30,
		MaxUploadBytes:       defaultMaxUploadBytes,
		MetricsEnabled:       true,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	applyDuration(&cfg.ShutdownGracePeriod, yamlCfg.ShutdownGracePeriod)
	applyDuration(&cfg.ReadHeaderTimeout, yamlCfg.ReadHeaderTimeout)
	applyDuration(&cfg.WriteTimeout, yamlCfg.WriteTimeout)
	applyDuration(&cfg.IdleTimeout, yamlCfg.IdleTimeout)

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil && *yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil && *yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Planner.Clearance > 0 {
		cfg.Clearance = yamlCfg.Planner.Clearance
	}

	if yamlCfg.Logging.Level != "" {
		cfg.LogLevel = strings.ToLower(yamlCfg.Logging.Level)
	}
	if yamlCfg.Logging.File != "" {
		cfg.LogFile = yamlCfg.Logging.File
	}
	if yamlCfg.Logging.MaxSizeMB > 0 {
		cfg.LogMaxSizeMB = yamlCfg.Logging.MaxSizeMB
	}
	if yamlCfg.Logging.MaxBackups > 0 {
		cfg.LogMaxBackups = yamlCfg.Logging.MaxBackups
	}
	if yamlCfg.Logging.MaxAgeDays > 0 {
		cfg.LogMaxAgeDays = yamlCfg.Logging.MaxAgeDays
	}

	if yamlCfg.AuditDir != "" {
		cfg.AuditDir = yamlCfg.AuditDir
	}
	if yamlCfg.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = yamlCfg.MaxUploadBytes
	}
	if yamlCfg.MetricsEnabled != nil {
		cfg.MetricsEnabled = *yamlCfg.MetricsEnabled
	}

	if yamlCfg.Seed.Containers != "" {
		cfg.SeedContainersFile = yamlCfg.Seed.Containers
	}
	if yamlCfg.Seed.Items != "" {
		cfg.SeedItemsFile = yamlCfg.Seed.Items
	}
}

func applyDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if clearance := env("CLEARANCE"); clearance != "" {
		if value, err := strconv.ParseFloat(clearance, 64); err == nil && value > 0 {
			cfg.Clearance = value
		}
	}

	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if file := env("LOG_FILE"); file != "" {
		cfg.LogFile = file
	}

	if dir := env("AUDIT_DIR"); dir != "" {
		cfg.AuditDir = dir
	}

	if raw := env("MAX_UPLOAD_BYTES"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil && value > 0 {
			cfg.MaxUploadBytes = value
		}
	}

	if raw := env("METRICS_ENABLED"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.MetricsEnabled = value
		}
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.Clearance != nil && *overrides.Clearance > 0 {
		cfg.Clearance = *overrides.Clearance
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(*overrides.LogLevel)
	}

	if overrides.LogFile != nil && *overrides.LogFile != "" {
		cfg.LogFile = *overrides.LogFile
	}

	if overrides.AuditDir != nil && *overrides.AuditDir != "" {
		cfg.AuditDir = *overrides.AuditDir
	}
}

var validate = validator.New()

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
