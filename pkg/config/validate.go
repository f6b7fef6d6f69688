package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// execution.executor must be a known value.
	switch c.Execution.Executor {
	case "static", "sandbox", "kubernetes":
		// valid
	default:
		errs = append(errs, fmt.Errorf("execution.executor must be \"static\", \"sandbox\", or \"kubernetes\", got %q", c.Execution.Executor))
	}

	// executor=sandbox needs an endpoint.
	if c.Execution.Executor == "sandbox" && c.Execution.SandboxURL == "" {
		errs = append(errs, fmt.Errorf("execution.sandbox_url is required when execution.executor is \"sandbox\""))
	}

	// executor=kubernetes needs a pod template.
	if c.Execution.Executor == "kubernetes" && c.Execution.Kubernetes.Template == "" {
		errs = append(errs, fmt.Errorf("execution.kubernetes.template is required when execution.executor is \"kubernetes\""))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "redis", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"redis\", or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "redis", an address must be set.
	if c.Storage.Type == "redis" && c.Storage.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("storage.redis.addr is required when storage.type is \"redis\""))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	// auth=apikey needs at least one key.
	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
	}

	// auth=jwt needs a secret.
	if c.Auth.Type == "jwt" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
	}

	return errors.Join(errs...)
}
