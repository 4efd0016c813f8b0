package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/compliance-gate/config"
	"github.com/target/compliance-gate/internal/adapters/devauth"
	"github.com/target/compliance-gate/internal/adapters/gotrue"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildSessionClient_MockMode(t *testing.T) {
	client, err := BuildSessionClient(context.Background(), AuthConfig{
		Auth: config.AuthConfig{
			Mode: config.AuthModeMock,
			DevAuth: config.DevAuthConfig{
				Accounts:    []string{"vendor@example.com:password1"},
				AutoConfirm: true,
			},
		},
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	require.IsType(t, &devauth.Provider{}, client)

	sess, err := client.SignInWithPassword(context.Background(), "vendor@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "vendor@example.com", sess.Email)
}

func TestBuildSessionClient_GoTrueMode(t *testing.T) {
	client, err := BuildSessionClient(context.Background(), AuthConfig{
		Auth: config.AuthConfig{
			Mode:   config.AuthModeGoTrue,
			GoTrue: config.GoTrueConfig{URL: "http://localhost:9999", JWTSecret: "secret"},
		},
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	assert.IsType(t, &gotrue.Client{}, client)
}

func TestBuildSessionClient_Errors(t *testing.T) {
	tests := []struct {
		name string
		auth config.AuthConfig
	}{
		{"unknown mode", config.AuthConfig{Mode: "ldap"}},
		{"gotrue without url", config.AuthConfig{Mode: config.AuthModeGoTrue}},
		{"mock with malformed account", config.AuthConfig{
			Mode:    config.AuthModeMock,
			DevAuth: config.DevAuthConfig{Accounts: []string{"nobody"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := BuildSessionClient(context.Background(), AuthConfig{Auth: tt.auth, Logger: quietLogger()})
			require.Error(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestBuildTokenVerifier(t *testing.T) {
	ctx := context.Background()

	v, err := buildTokenVerifier(ctx, config.GoTrueConfig{JWTSecret: "secret"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &gotrue.HS256Verifier{}, v)

	v, err = buildTokenVerifier(ctx, config.GoTrueConfig{JWKSURL: "https://idp.example.com/.well-known/jwks.json"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &gotrue.JWKSVerifier{}, v)

	v, err = buildTokenVerifier(ctx, config.GoTrueConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBuildAllowlist(t *testing.T) {
	a, err := BuildAllowlist([]string{"Counsel@LawFirm.com", "@lawfirm.com"})
	require.NoError(t, err)
	assert.True(t, a.Contains("partner@lawfirm.com"))

	_, err = BuildAllowlist([]string{"@com"})
	assert.Error(t, err)
}
