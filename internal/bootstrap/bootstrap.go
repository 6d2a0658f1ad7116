// Package bootstrap wires configuration, credentials, logging, telemetry and
// infrastructure clients for the command-line tools.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/visibilityscore/internal/adapters/cache"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/clients/openai"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/clients/redis"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/observability"
	"github.com/zatekoja/visibilityscore/pkg/config"
	"github.com/zatekoja/visibilityscore/pkg/secrets"
)

// Runtime holds the loaded configuration and the cleanup hooks registered
// while building clients.
type Runtime struct {
	Config  *config.Config
	closers []func(context.Context) error
}

// Init loads Vault credentials into the environment, reads configuration,
// then sets up logging and, when enabled, tracing and metrics.
func Init(ctx context.Context, service string) (*Runtime, error) {
	vaultResult, vaultErr := secrets.ApplyCredentials(ctx, secrets.LoadVaultConfigFromEnv())

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(service, cfg.Env, cfg.LogLevel)

	if vaultErr != nil {
		return nil, fmt.Errorf("failed to load credentials from vault: %w", vaultErr)
	}
	if vaultResult.Enabled {
		log.Info().
			Str("path", vaultResult.Path).
			Strs("loaded", vaultResult.Loaded).
			Strs("skipped", vaultResult.Skipped).
			Msg("vault credentials applied")
	}

	rt := &Runtime{Config: cfg}

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			rt.closers = append(rt.closers, shutdown)
			log.Debug().Msg("OpenTelemetry initialized")
		}
	}
	if _, err := observability.InitMetrics(); err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics")
	}

	return rt, nil
}

// Close runs cleanup hooks in reverse registration order.
func (r *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		}
	}
	r.closers = nil
}

// EngineClient returns the OpenAI-compatible client for every credentialed provider.
func (r *Runtime) EngineClient() *openai.Client {
	client := openai.NewClient(&r.Config.Engines, nil)
	r.closers = append(r.closers, func(context.Context) error { return client.Close() })
	return client
}

// ScoreCache returns a Redis-backed cache, or nil when Redis is disabled or
// unreachable. Callers treat nil as "no cache".
func (r *Runtime) ScoreCache(ctx context.Context, prefix string) providers.CacheProvider {
	if !r.Config.Redis.Enabled {
		return nil
	}
	client, err := redis.NewClient(ctx, &r.Config.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		return nil
	}
	r.closers = append(r.closers, func(context.Context) error { return client.Close() })
	return cache.NewRedisAdapter(client, prefix)
}

// Database connects to PostgreSQL and registers the connection for Close.
func (r *Runtime) Database(ctx context.Context) (*postgres.Client, error) {
	client, err := postgres.NewClient(ctx, &r.Config.Database)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, func(context.Context) error { return client.Close() })
	return client, nil
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
