package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/compliance-gate/config"
	redisadapter "github.com/target/compliance-gate/internal/adapters/redis"
	"github.com/target/compliance-gate/internal/data"
	"github.com/target/compliance-gate/internal/data/pgxutil"
	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	httpx "github.com/target/compliance-gate/internal/http"
	"github.com/target/compliance-gate/internal/observability/statsd"
	"github.com/target/compliance-gate/internal/ports"
	"github.com/target/compliance-gate/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Sessions *service.SessionOrchestrator
	Guard    *service.AccessGuard
	Admin    *service.UserAdminService
	Profiles *data.ProfileRepo
	Health   map[string]httpx.HealthCheck
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          pgxutil.DB
	RedisClient redis.UniversalClient
	Client      ports.SessionClient
	Allowlist   *domainauth.Allowlist
	Metrics     statsd.Sink // Optional
	Logger      *slog.Logger
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// NewServices wires repositories, stores and services. It does no I/O.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps require config")
	}
	if deps.DB == nil || deps.RedisClient == nil || deps.Client == nil {
		return ServiceContainer{}, errors.New("service deps require database, redis and session client")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	prefix := cfg.Redis.KeyPrefix

	profiles := data.NewProfileRepo(deps.DB)
	sessions := redisadapter.NewSessionStoreWithOptions(deps.RedisClient, redisadapter.SessionStoreOptions{
		Prefix: prefix + "session:",
	})
	prefs := redisadapter.NewPreferenceStore(deps.RedisClient, redisadapter.PreferenceStoreOptions{
		Prefix: prefix + "prefs:",
		TTL:    cfg.Auth.Session.PreferenceTTL,
	})

	resolver := service.NewProfileResolver(service.ProfileResolverOptions{
		Profiles: profiles,
		Config: service.ProfileResolverConfig{
			Retry: service.RetryPolicy{
				Attempts: cfg.Auth.Retry.Attempts,
				Delay:    cfg.Auth.Retry.Delay,
				Backoff:  cfg.Auth.Retry.Backoff,
			},
			CallTimeout: cfg.Auth.Session.CallTimeout,
		},
		Logger: logger,
	})

	orchestrator := service.NewSessionOrchestrator(service.SessionOrchestratorOptions{
		Deps: service.OrchestratorDeps{
			Client:      deps.Client,
			Sessions:    sessions,
			Preferences: prefs,
			Profiles:    resolver,
			Classifier:  domainauth.Classifier{Allowlist: deps.Allowlist},
		},
		Config: service.OrchestratorConfig{
			CallTimeout:       cfg.Auth.Session.CallTimeout,
			SessionTTL:        cfg.Auth.Session.TTL,
			OAuthProviders:    cfg.Auth.OAuth.Providers,
			OAuthScopes:       cfg.Auth.OAuth.Scopes,
			OAuthRedirectURL:  cfg.Auth.OAuth.RedirectURL,
			VerifyRedirectURL: cfg.Auth.Session.VerifyRedirectURL,
			ResetRedirectURL:  cfg.Auth.Session.ResetRedirectURL,
		},
		Metrics: deps.Metrics,
		Logger:  logger,
	})

	health := map[string]httpx.HealthCheck{
		"redis": func(ctx context.Context) error { return deps.RedisClient.Ping(ctx).Err() },
	}
	if p, ok := deps.DB.(pinger); ok {
		health["postgres"] = p.Ping
	}

	return ServiceContainer{
		Sessions: orchestrator,
		Guard:    service.NewAccessGuard(deps.Allowlist, nil),
		Admin: service.NewUserAdminService(service.UserAdminServiceOptions{
			Profiles: profiles,
			Admin:    profiles,
			Logger:   logger,
		}),
		Profiles: profiles,
		Health:   health,
	}, nil
}
