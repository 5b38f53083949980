package config

import "time"

// Timeout constants
const (
	DefaultHTTPTimeout      = 60 * time.Second
	ServerShutdownTimeout   = 30 * time.Second
	DatabaseConnMaxLifetime = 5 * time.Minute
	DatabasePingTimeout     = 5 * time.Second
)

// Defaults applied when the config file leaves a value unset
const (
	DefaultServerPort     = "8080"
	DefaultServiceName    = "rpy-backend"
	DefaultMaxOpenConns   = 25
	DefaultMaxIdleConns   = 5
	DefaultRateLimitBurst = 20
	DefaultMaxPageSize    = 100
	DefaultPageSize       = 20
)

// Security configuration constants
const (
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;"
)
