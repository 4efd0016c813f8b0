package gotrue

import (
	"context"
	"errors"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/target/compliance-gate/internal/errors"
)

// AccessClaims is what a verified access token says about its bearer.
type AccessClaims struct {
	Subject      string
	Email        string
	ExpiresAt    time.Time
	UserMetadata map[string]any
}

// TokenVerifier checks an access token without a round trip to the backend.
// Any failure is returned as token_expired.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (AccessClaims, error)
}

type accessTokenClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// HS256Config configures verification against the project's shared JWT secret.
type HS256Config struct {
	Secret   string
	Audience string // Optional; GoTrue issues "authenticated"
	Issuer   string // Optional
	Now      func() time.Time
}

// HS256Verifier verifies tokens signed with the shared JWT secret.
type HS256Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewHS256Verifier creates an HS256Verifier.
func NewHS256Verifier(cfg HS256Config) (*HS256Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	return &HS256Verifier{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}, nil
}

// Verify implements TokenVerifier.
func (v *HS256Verifier) Verify(_ context.Context, raw string) (AccessClaims, error) {
	var claims accessTokenClaims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "access token expired")
		}
		return AccessClaims{}, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "access token invalid")
	}
	out := AccessClaims{
		Subject:      claims.Subject,
		Email:        claims.Email,
		UserMetadata: claims.UserMetadata,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// JWKSConfig configures verification against the backend's published signing keys.
type JWKSConfig struct {
	JWKSURL    string
	Issuer     string   // Optional; empty skips the issuer check
	Audience   string   // Optional; empty skips the audience check
	Algorithms []string // Defaults to RS256 and ES256
	Now        func() time.Time
	HTTPClient *http.Client
}

// JWKSVerifier verifies asymmetrically signed tokens using a cached remote key set.
type JWKSVerifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewJWKSVerifier creates a JWKSVerifier. ctx scopes the key set's HTTP fetches and should
// outlive the verifier.
func NewJWKSVerifier(ctx context.Context, cfg JWKSConfig) (*JWKSVerifier, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwks url is required")
	}
	if cfg.HTTPClient != nil {
		ctx = gooidc.ClientContext(ctx, cfg.HTTPClient)
	}
	algs := cfg.Algorithms
	if len(algs) == 0 {
		algs = []string{gooidc.RS256, gooidc.ES256}
	}
	keySet := gooidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
	v := gooidc.NewVerifier(cfg.Issuer, keySet, &gooidc.Config{
		ClientID:             cfg.Audience,
		SkipClientIDCheck:    cfg.Audience == "",
		SkipIssuerCheck:      cfg.Issuer == "",
		SupportedSigningAlgs: algs,
		Now:                  cfg.Now,
	})
	return &JWKSVerifier{verifier: v}, nil
}

// Verify implements TokenVerifier.
func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (AccessClaims, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		var expired *gooidc.TokenExpiredError
		if errors.As(err, &expired) {
			return AccessClaims{}, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "access token expired")
		}
		return AccessClaims{}, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "access token invalid")
	}
	var extra struct {
		Email        string         `json:"email"`
		UserMetadata map[string]any `json:"user_metadata"`
	}
	if err := tok.Claims(&extra); err != nil {
		return AccessClaims{}, apperrors.Wrap(err, apperrors.ErrCodeTokenExpired, "access token claims unreadable")
	}
	return AccessClaims{
		Subject:      tok.Subject,
		Email:        extra.Email,
		ExpiresAt:    tok.Expiry,
		UserMetadata: extra.UserMetadata,
	}, nil
}
