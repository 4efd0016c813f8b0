package gotrue

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/compliance-gate/internal/errors"
)

func TestHS256Verifier(t *testing.T) {
	v, err := NewHS256Verifier(HS256Config{Secret: testSecret, Audience: "authenticated"})
	require.NoError(t, err)
	ctx := context.Background()

	claims, err := v.Verify(ctx, signToken(t, testUserID, testEmail, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.Subject)
	assert.Equal(t, testEmail, claims.Email)
	assert.Equal(t, "Ada", claims.UserMetadata["given_name"])
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 2*time.Second)

	_, err = v.Verify(ctx, signToken(t, testUserID, testEmail, time.Now().Add(-time.Minute)))
	require.Error(t, err)
	assert.True(t, apperrors.IsTokenExpired(err))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = v.Verify(ctx, "not-a-jwt")
	assert.True(t, apperrors.IsTokenExpired(err))

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   testUserID,
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("a-different-secret"))
	require.NoError(t, err)
	_, err = v.Verify(ctx, other)
	assert.True(t, apperrors.IsTokenExpired(err), "wrong signature")

	wrongAud, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   testUserID,
		Audience:  jwt.ClaimStrings{"service_role"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = v.Verify(ctx, wrongAud)
	assert.True(t, apperrors.IsTokenExpired(err), "wrong audience")
}

func TestHS256Verifier_Clock(t *testing.T) {
	issued := time.Now()
	v, err := NewHS256Verifier(HS256Config{
		Secret: testSecret,
		Now:    func() time.Time { return issued.Add(2 * time.Hour) },
	})
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), signToken(t, testUserID, testEmail, issued.Add(time.Hour)))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestNewHS256Verifier_RequiresSecret(t *testing.T) {
	_, err := NewHS256Verifier(HS256Config{})
	assert.Error(t, err)
}

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func jwksServer(t *testing.T, key *rsa.PublicKey, kid string) *httptest.Server {
	t.Helper()
	doc := map[string]any{"keys": []map[string]any{{
		"kty": "RSA",
		"kid": kid,
		"alg": "RS256",
		"use": "sig",
		"n":   b64(key.N.Bytes()),
		"e":   b64(big.NewInt(int64(key.E)).Bytes()),
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid, iss string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, accessTokenClaims{
		Email:        testEmail,
		UserMetadata: map[string]any{"first_name": "Ada"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss,
			Subject:   testUserID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, &key.PublicKey, "k1")
	const issuer = "https://project.example.com/auth/v1"

	v, err := NewJWKSVerifier(context.Background(), JWKSConfig{
		JWKSURL:    srv.URL,
		Issuer:     issuer,
		Audience:   "authenticated",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	claims, err := v.Verify(ctx, signRS256(t, key, "k1", issuer, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.Subject)
	assert.Equal(t, testEmail, claims.Email)
	assert.Equal(t, "Ada", claims.UserMetadata["first_name"])

	_, err = v.Verify(ctx, signRS256(t, key, "k1", issuer, time.Now().Add(-time.Hour)))
	assert.True(t, apperrors.IsTokenExpired(err))

	_, err = v.Verify(ctx, signRS256(t, key, "k1", "https://elsewhere.example.com", time.Now().Add(time.Hour)))
	assert.True(t, apperrors.IsTokenExpired(err), "issuer mismatch")

	stranger, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = v.Verify(ctx, signRS256(t, stranger, "k1", issuer, time.Now().Add(time.Hour)))
	assert.True(t, apperrors.IsTokenExpired(err), "unknown signing key")
}

func TestNewJWKSVerifier_RequiresURL(t *testing.T) {
	_, err := NewJWKSVerifier(context.Background(), JWKSConfig{})
	assert.Error(t, err)
}
