// AngelaMos | 2026
// guard.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/copystudio/internal/config"
	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/middleware"
)

const (
	jwksRefreshInterval = 10 * time.Minute
	clockSkew           = 30 * time.Second
	defaultRole         = "authenticated"
)

// Guard verifies access tokens minted by the identity provider. It never
// issues tokens and holds no session state.
type Guard struct {
	cfg    config.AuthConfig
	secret []byte
	client *http.Client

	mu        sync.RWMutex
	keys      jwk.Set
	fetchedAt time.Time
}

func NewGuard(cfg config.AuthConfig) (*Guard, error) {
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		return nil, fmt.Errorf("auth guard: jwt secret or jwks url required")
	}

	return &Guard{
		cfg:    cfg,
		secret: []byte(cfg.JWTSecret),
		client: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

func (g *Guard) VerifyAccessToken(
	ctx context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	keyOpt, err := g.keyOption(ctx)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParseOption{
		keyOpt,
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(clockSkew),
	}
	if g.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.cfg.Issuer))
	}
	if g.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(g.cfg.Audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	claims := &middleware.AccessTokenClaims{
		UserID: subject,
		Role:   roleFromToken(token),
	}

	var email string
	if err := token.Get("email", &email); err == nil {
		claims.Email = email
	}

	return claims, nil
}

// roleFromToken prefers app_metadata.role, which only the provider's
// service role can write, over the top-level role claim.
func roleFromToken(token jwt.Token) string {
	var meta map[string]any
	if err := token.Get("app_metadata", &meta); err == nil {
		if role, ok := meta["role"].(string); ok && role != "" {
			return role
		}
	}

	var role string
	if err := token.Get("role", &role); err == nil && role != "" {
		return role
	}

	return defaultRole
}

func (g *Guard) keyOption(ctx context.Context) (jwt.ParseOption, error) {
	if g.cfg.JWKSURL == "" {
		return jwt.WithKey(jwa.HS256(), g.secret), nil
	}

	set, err := g.keySet(ctx)
	if err != nil {
		return nil, err
	}
	return jwt.WithKeySet(set), nil
}

func (g *Guard) keySet(ctx context.Context) (jwk.Set, error) {
	g.mu.RLock()
	set, fetchedAt := g.keys, g.fetchedAt
	g.mu.RUnlock()

	if set != nil && time.Since(fetchedAt) < jwksRefreshInterval {
		return set, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.keys != nil && time.Since(g.fetchedAt) < jwksRefreshInterval {
		return g.keys, nil
	}

	fresh, err := jwk.Fetch(ctx, g.cfg.JWKSURL, jwk.WithHTTPClient(g.client))
	if err != nil {
		if g.keys != nil {
			return g.keys, nil
		}
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	g.keys = fresh
	g.fetchedAt = time.Now()
	return fresh, nil
}
