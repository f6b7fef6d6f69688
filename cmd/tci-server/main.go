// Command tci-server runs a self-hosted test code interpreter service.
//
// Configuration is layered: built-in defaults, a YAML config file
// (-config flag, TCI_CONFIG env, ./config.yaml, /etc/tci/config.yaml),
// then TCI_* environment variable overrides. See pkg/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tci-dev/tcigo/pkg/auth"
	"github.com/tci-dev/tcigo/pkg/auth/apikey"
	"github.com/tci-dev/tcigo/pkg/auth/jwt"
	"github.com/tci-dev/tcigo/pkg/backend"
	"github.com/tci-dev/tcigo/pkg/backend/local"
	"github.com/tci-dev/tcigo/pkg/config"
	"github.com/tci-dev/tcigo/pkg/debug"
	"github.com/tci-dev/tcigo/pkg/observability"
	"github.com/tci-dev/tcigo/pkg/sandbox"
	"github.com/tci-dev/tcigo/pkg/sandbox/kubernetes"
	"github.com/tci-dev/tcigo/pkg/server"
	"github.com/tci-dev/tcigo/pkg/storage"
	"github.com/tci-dev/tcigo/pkg/storage/memory"
	"github.com/tci-dev/tcigo/pkg/storage/postgres"
	"github.com/tci-dev/tcigo/pkg/storage/redis"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)

	ctx := context.Background()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer store.Close()

	executor, err := newExecutor(cfg)
	if err != nil {
		return fmt.Errorf("creating executor: %w", err)
	}

	var b backend.Backend = local.New(store, local.Config{
		ValidateSessions: cfg.Execution.ValidateSessions,
		Executor:         executor,
	})
	if cfg.Observability.Metrics.Enabled {
		b = observability.Instrument(b)
	}

	middleware := []func(http.Handler) http.Handler{}
	if cfg.Observability.Metrics.Enabled {
		middleware = append(middleware, observability.MetricsMiddleware)
	}
	if cfg.Auth.Type != "none" {
		chain, err := newAuthChain(cfg)
		if err != nil {
			return fmt.Errorf("creating auth chain: %w", err)
		}
		middleware = append(middleware, auth.Middleware(chain, auth.DefaultBypassEndpoints))
	}
	if cfg.Observability.Metrics.Enabled {
		middleware = append(middleware, metricsEndpoint(cfg.Observability.Metrics.Path))
	}

	srv := server.NewServer(b,
		server.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		server.WithMaxBodySize(cfg.Server.MaxBodySize),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithMiddleware(middleware...),
	)

	slog.Info("server configured",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"executor", cfg.Execution.Executor,
		"auth", cfg.Auth.Type,
	)
	return srv.ListenAndServe()
}

// newStore selects the session store from configuration.
func newStore(ctx context.Context, cfg *config.Config) (storage.SessionStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		slog.Info("storage enabled", "type", "memory")
		return memory.New(), nil

	case "redis":
		slog.Info("storage enabled", "type", "redis", "addr", cfg.Storage.Redis.Addr)
		return redis.New(ctx, redis.Config{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})

	case "postgres":
		slog.Info("storage enabled", "type", "postgres")
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// newExecutor selects the code executor from configuration. The static
// executor is the fixed-outcome stand-in; sandbox and kubernetes run real
// code in sandbox pods.
func newExecutor(cfg *config.Config) (backend.Executor, error) {
	switch cfg.Execution.Executor {
	case "static":
		return local.NewStaticExecutor(), nil

	case "sandbox":
		exec := sandbox.NewExecutor(&sandbox.StaticAcquirer{URL: cfg.Execution.SandboxURL})
		exec.TimeoutSeconds = cfg.Execution.TimeoutSeconds
		return exec, nil

	case "kubernetes":
		acquirer, err := kubernetes.NewDefaultAcquirer(
			cfg.Execution.Kubernetes.Template,
			cfg.Execution.Kubernetes.Namespace,
			cfg.Execution.Kubernetes.AcquireTimeout,
		)
		if err != nil {
			return nil, err
		}
		exec := sandbox.NewExecutor(acquirer)
		exec.TimeoutSeconds = cfg.Execution.TimeoutSeconds
		return exec, nil

	default:
		return nil, fmt.Errorf("unknown executor %q", cfg.Execution.Executor)
	}
}

// newAuthChain builds the authenticator chain from configuration.
func newAuthChain(cfg *config.Config) (*auth.AuthChain, error) {
	var authenticators []auth.Authenticator

	switch cfg.Auth.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject: k.Subject,
					Scopes:  k.Scopes,
				},
			})
		}
		authenticators = append(authenticators, apikey.New(entries))

	case "jwt":
		a, err := jwt.New(jwt.Config{
			Secret:   cfg.Auth.JWT.Secret,
			Issuer:   cfg.Auth.JWT.Issuer,
			Audience: cfg.Auth.JWT.Audience,
		})
		if err != nil {
			return nil, err
		}
		authenticators = append(authenticators, a)

	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}

	return &auth.AuthChain{
		Authenticators:  authenticators,
		DefaultDecision: auth.No,
	}, nil
}

// metricsEndpoint serves the Prometheus handler on the configured path,
// passing all other requests through.
func metricsEndpoint(path string) func(http.Handler) http.Handler {
	promHandler := promhttp.Handler()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path {
				promHandler.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
