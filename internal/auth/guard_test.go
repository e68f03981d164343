// AngelaMos | 2026
// guard_test.go

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/copystudio/internal/config"
	"github.com/carterperez-dev/copystudio/internal/core"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func buildToken(t *testing.T, subject string, exp time.Time, extra map[string]any) jwt.Token {
	t.Helper()

	b := jwt.NewBuilder().
		Subject(subject).
		Issuer("https://project.supabase.co/auth/v1").
		Audience([]string{"authenticated"}).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(exp)
	for k, v := range extra {
		b = b.Claim(k, v)
	}

	tok, err := b.Build()
	require.NoError(t, err)
	return tok
}

func signHS256(t *testing.T, tok jwt.Token, secret string) string {
	t.Helper()
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}

func secretGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := NewGuard(config.AuthConfig{
		JWTSecret: testSecret,
		Issuer:    "https://project.supabase.co/auth/v1",
		Audience:  "authenticated",
	})
	require.NoError(t, err)
	return g
}

func TestGuard_AcceptsValidSecretToken(t *testing.T) {
	g := secretGuard(t)
	tok := buildToken(t, "user-123", time.Now().Add(time.Hour), map[string]any{
		"email":        "maker@example.com",
		"role":         "authenticated",
		"app_metadata": map[string]any{"role": "admin"},
	})

	claims, err := g.VerifyAccessToken(context.Background(), signHS256(t, tok, testSecret))
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "maker@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestGuard_DefaultsRole(t *testing.T) {
	g := secretGuard(t)
	tok := buildToken(t, "user-123", time.Now().Add(time.Hour), nil)

	claims, err := g.VerifyAccessToken(context.Background(), signHS256(t, tok, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestGuard_RejectsExpired(t *testing.T) {
	g := secretGuard(t)
	tok := buildToken(t, "user-123", time.Now().Add(-time.Hour), nil)

	_, err := g.VerifyAccessToken(context.Background(), signHS256(t, tok, testSecret))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestGuard_RejectsWrongSecret(t *testing.T) {
	g := secretGuard(t)
	tok := buildToken(t, "user-123", time.Now().Add(time.Hour), nil)

	_, err := g.VerifyAccessToken(
		context.Background(),
		signHS256(t, tok, "another-secret-that-is-also-long-enough!!"),
	)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestGuard_RejectsMissingSubject(t *testing.T) {
	g := secretGuard(t)
	tok := buildToken(t, "", time.Now().Add(time.Hour), nil)

	_, err := g.VerifyAccessToken(context.Background(), signHS256(t, tok, testSecret))
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestGuard_RejectsGarbage(t *testing.T) {
	g := secretGuard(t)
	_, err := g.VerifyAccessToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestGuard_VerifiesWithJWKS(t *testing.T) {
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	private, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, private.Set(jwk.KeyIDKey, "test-kid"))
	require.NoError(t, private.Set(jwk.AlgorithmKey, jwa.RS256()))

	public, err := private.PublicKey()
	require.NoError(t, err)

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(public))
	body, err := json.Marshal(set)
	require.NoError(t, err)

	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	g, err := NewGuard(config.AuthConfig{JWKSURL: srv.URL, Audience: "authenticated"})
	require.NoError(t, err)

	tok := buildToken(t, "user-456", time.Now().Add(time.Hour), nil)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), private))
	require.NoError(t, err)

	for range 2 {
		claims, verifyErr := g.VerifyAccessToken(context.Background(), string(signed))
		require.NoError(t, verifyErr)
		assert.Equal(t, "user-456", claims.UserID)
	}
	assert.Equal(t, 1, fetches)
}

func TestNewGuard_RequiresKeyMaterial(t *testing.T) {
	_, err := NewGuard(config.AuthConfig{})
	assert.Error(t, err)
}
