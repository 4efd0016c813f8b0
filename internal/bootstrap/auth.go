package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/compliance-gate/config"
	"github.com/target/compliance-gate/internal/adapters/devauth"
	"github.com/target/compliance-gate/internal/adapters/gotrue"
	domainauth "github.com/target/compliance-gate/internal/domain/auth"
	"github.com/target/compliance-gate/internal/ports"
)

// AuthConfig contains configuration for the identity backend client.
type AuthConfig struct {
	Auth   config.AuthConfig
	Logger *slog.Logger
}

// BuildSessionClient creates the identity backend client for the configured auth mode.
// ctx scopes background key-set fetches and should live as long as the client.
//
//nolint:ireturn // the mode picks the concrete client at runtime.
func BuildSessionClient(ctx context.Context, cfg AuthConfig) (ports.SessionClient, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevAuthClient(cfg.Auth.DevAuth, logger)
	case config.AuthModeGoTrue:
		return buildGoTrueClient(ctx, cfg.Auth.GoTrue, logger)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildDevAuthClient(cfg config.DevAuthConfig, logger *slog.Logger) (*devauth.Provider, error) {
	parsed, err := cfg.ParsedAccounts()
	if err != nil {
		return nil, err
	}
	accounts := make([]devauth.Account, 0, len(parsed))
	for _, a := range parsed {
		accounts = append(accounts, devauth.Account{Email: a.Email, Password: a.Password})
	}

	prov, err := devauth.NewProvider(devauth.Config{
		Accounts:    accounts,
		AutoConfirm: cfg.AutoConfirm,
		OAuthEmail:  cfg.OAuthEmail,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create dev auth provider: %w", err)
	}
	logger.Warn("dev auth backend enabled; accounts live in memory", "seeded_accounts", len(accounts))
	return prov, nil
}

func buildGoTrueClient(ctx context.Context, cfg config.GoTrueConfig, logger *slog.Logger) (*gotrue.Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	verifier, err := buildTokenVerifier(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}

	client, err := gotrue.New(gotrue.Config{
		BaseURL:    cfg.URL,
		APIKey:     cfg.APIKey,
		HTTPClient: httpClient,
		Verifier:   verifier,
		Metadata: gotrue.MetadataPaths{
			FirstName: cfg.MetadataFirstName,
			LastName:  cfg.MetadataLastName,
			Company:   cfg.MetadataCompany,
			AvatarURL: cfg.MetadataAvatarURL,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create gotrue client: %w", err)
	}
	return client, nil
}

// buildTokenVerifier returns nil when neither a secret nor a key set is configured, leaving
// the client to introspect tokens against the backend.
//
//nolint:ireturn // verifier kind depends on configuration.
func buildTokenVerifier(ctx context.Context, cfg config.GoTrueConfig, httpClient *http.Client) (gotrue.TokenVerifier, error) {
	switch {
	case cfg.JWTSecret != "":
		v, err := gotrue.NewHS256Verifier(gotrue.HS256Config{
			Secret:   cfg.JWTSecret,
			Audience: cfg.JWTAudience,
			Issuer:   cfg.JWTIssuer,
		})
		if err != nil {
			return nil, fmt.Errorf("create hs256 verifier: %w", err)
		}
		return v, nil
	case cfg.JWKSURL != "":
		v, err := gotrue.NewJWKSVerifier(ctx, gotrue.JWKSConfig{
			JWKSURL:    cfg.JWKSURL,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, fmt.Errorf("create jwks verifier: %w", err)
		}
		return v, nil
	default:
		return nil, nil
	}
}

// BuildAllowlist parses the privileged email allowlist.
func BuildAllowlist(entries []string) (*domainauth.Allowlist, error) {
	a, err := domainauth.NewAllowlist(entries)
	if err != nil {
		return nil, fmt.Errorf("privileged emails: %w", err)
	}
	return a, nil
}
