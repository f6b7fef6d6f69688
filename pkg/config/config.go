// Package config provides unified configuration for the interpreter server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (TCI_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the interpreter server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Execution     ExecutionConfig     `yaml:"execution"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds log verbosity settings. Both fields can also be set
// via TCI_LOG_LEVEL and TCI_DEBUG, which take precedence (see pkg/debug).
type LoggingConfig struct {
	Level string `yaml:"level"` // ERROR, WARN, INFO, DEBUG, TRACE; default: "INFO"
	Debug string `yaml:"debug"` // comma-separated debug categories, e.g. "backend,sandbox"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 64 MB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// ExecutionConfig holds code execution settings.
type ExecutionConfig struct {
	// Executor selects the execution strategy: "static" (fixed-outcome
	// stand-in), "sandbox" (single sandbox service at SandboxURL), or
	// "kubernetes" (sandbox pods acquired per execution). Default: "static".
	Executor string `yaml:"executor"`

	// SandboxURL is the sandbox service endpoint for executor=sandbox.
	SandboxURL string `yaml:"sandbox_url"`

	// TimeoutSeconds bounds a single code execution. Default: 60.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// ValidateSessions makes executions fail for unknown or closed
	// sessions. Default: true.
	ValidateSessions bool `yaml:"validate_sessions"`

	Kubernetes KubernetesConfig `yaml:"kubernetes"`
}

// KubernetesConfig holds sandbox pod acquisition settings for
// executor=kubernetes.
type KubernetesConfig struct {
	Template       string        `yaml:"template"`        // SandboxTemplate name, required
	Namespace      string        `yaml:"namespace"`       // default: "default"
	AcquireTimeout time.Duration `yaml:"acquire_timeout"` // default: 90s
}

// StorageConfig holds session state settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory", "redis", or "postgres", default: "memory"
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr         string `yaml:"addr"` // default: "localhost:6379"
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
	DB           int    `yaml:"db"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string   `yaml:"key"`
	KeyFile string   `yaml:"key_file"` // _file variant for key
	Subject string   `yaml:"subject"`
	Scopes  []string `yaml:"scopes"`
}

// JWTConfig holds HMAC JWT validation settings.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			MaxBodySize:     64 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Execution: ExecutionConfig{
			Executor:         "static",
			TimeoutSeconds:   60,
			ValidateSessions: true,
			Kubernetes: KubernetesConfig{
				Namespace:      "default",
				AcquireTimeout: 90 * time.Second,
			},
		},
		Storage: StorageConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}
