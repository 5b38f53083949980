// Package config handles application configuration loading from YAML and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "github.com/rshatalov/rpy/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable that points at the YAML config file.
const ConfigFileEnv = "RPY_CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Log file rotation
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Study session behaviour
	Study StudyConfig `json:"study" yaml:"study"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port           string   `json:"port" yaml:"port"`
	Debug          bool     `json:"debug" yaml:"debug"`
	LogLevel       string   `json:"log_level" yaml:"log_level"`
	CORSOrigins    []string `json:"cors_origins" yaml:"cors_origins"`
	RateLimitRPS   float64  `json:"rate_limit_rps" yaml:"rate_limit_rps"`     // 0 disables rate limiting
	RateLimitBurst int      `json:"rate_limit_burst" yaml:"rate_limit_burst"` // Bucket size per client
	// EnableAdminRoutes exposes the read-only database inspection endpoints.
	EnableAdminRoutes bool `json:"enable_admin_routes" yaml:"enable_admin_routes"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "rpy-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// LoggingConfig controls the optional rotating log file written next to stdout.
type LoggingConfig struct {
	File       string `json:"file" yaml:"file"` // Empty disables the file sink
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// StudyConfig configures question selection.
type StudyConfig struct {
	// RandomSeed makes question selection reproducible; 0 seeds from the clock.
	RandomSeed  int64 `json:"random_seed" yaml:"random_seed"`
	MaxPageSize int   `json:"max_page_size" yaml:"max_page_size"`
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// Default returns a configuration populated only with defaults.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = DefaultRateLimitBurst
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = DefaultServiceName
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.SamplingRate <= 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Study.MaxPageSize <= 0 {
		c.Study.MaxPageSize = DefaultMaxPageSize
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		// Durations are int64 underneath but are written as "5m" in the environment.
		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the file named by RPY_CONFIG_FILE, or config.yaml when present.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
