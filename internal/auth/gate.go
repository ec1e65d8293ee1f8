package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

// DefaultRefreshInterval is the minimum gap between unknown-kid key refreshes.
const DefaultRefreshInterval = 5 * time.Minute

// GateConfig configures token verification.
type GateConfig struct {
	// Issuer is the expected iss claim, e.g. "https://tenant.auth0.com/".
	Issuer string
	// Audience is the expected aud claim.
	Audience string
	// Algorithms lists the accepted signing algorithms. Defaults to RS256.
	Algorithms []string
	// RefreshInterval rate-limits key refreshes triggered by unknown kids.
	// Defaults to DefaultRefreshInterval.
	RefreshInterval time.Duration
}

// Gate verifies bearer tokens and enforces permissions.
type Gate struct {
	keys    KeySetProvider
	cfg     GateConfig
	parser  *jwt.Parser
	refresh *rate.Limiter
}

// keyRefresher is implemented by providers that can bypass their cache.
type keyRefresher interface {
	RefreshKeys(ctx context.Context) (*KeySet, error)
}

// NewGate creates a Gate backed by the given key-set provider.
func NewGate(keys KeySetProvider, cfg GateConfig) *Gate {
	if len(cfg.Algorithms) == 0 {
		cfg.Algorithms = []string{jwt.SigningMethodRS256.Alg()}
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(cfg.Algorithms),
		jwt.WithAudience(cfg.Audience),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	return &Gate{
		keys:    keys,
		cfg:     cfg,
		parser:  parser,
		refresh: rate.NewLimiter(rate.Every(cfg.RefreshInterval), 1),
	}
}

// ExtractBearerToken pulls the token out of an Authorization header value.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrHeaderMissing()
	}

	parts := strings.Fields(header)
	switch {
	case len(parts) == 0:
		return "", ErrHeaderMissing()
	case !strings.EqualFold(parts[0], "bearer"):
		return "", ErrMalformedHeader(`Authorization header must start with "Bearer".`)
	case len(parts) == 1:
		return "", ErrMalformedHeader("Token not found.")
	case len(parts) > 2:
		return "", ErrMalformedHeader("Authorization header must be bearer token.")
	}

	return parts[1], nil
}

// Verify decodes and verifies the token carried by an Authorization header value.
// Every failure is returned as an *Error.
func (g *Gate) Verify(ctx context.Context, header string) (*Claims, error) {
	token, err := ExtractBearerToken(header)
	if err != nil {
		return nil, err
	}

	kid, err := unverifiedKeyID(token)
	if err != nil {
		return nil, err
	}

	kf, err := g.verifier(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = g.parser.ParseWithClaims(token, claims, kf.KeyfuncCtx(ctx))
	if err != nil {
		return nil, classifyParseError(err)
	}

	return claims, nil
}

// Authorize verifies the header and checks the required permission.
func (g *Gate) Authorize(ctx context.Context, header, permission string) (*Claims, error) {
	claims, err := g.Verify(ctx, header)
	if err != nil {
		return nil, err
	}
	if err := CheckPermission(claims, permission); err != nil {
		return nil, err
	}
	return claims, nil
}

// unverifiedKeyID reads the kid header without verifying the signature.
func unverifiedKeyID(token string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		return "", ErrInvalidHeader("Authorization malformed.", err)
	}

	kid, _ := parsed.Header["kid"].(string)
	if kid == "" {
		return "", ErrInvalidHeader("Authorization malformed.", nil)
	}

	return kid, nil
}

// verifier returns a keyfunc over a key set that contains kid.
// A miss triggers at most one upstream refresh per RefreshInterval; further
// misses inside the window are rejected without touching the provider.
func (g *Gate) verifier(ctx context.Context, kid string) (keyfunc.Keyfunc, error) {
	ks, err := g.keys.CurrentKeys(ctx)
	if err != nil {
		return nil, ErrKeySetUnavailable(err)
	}

	storage, err := ks.Storage(ctx)
	if err != nil {
		return nil, ErrInvalidHeader("Unable to find the appropriate key.", err)
	}

	_, err = storage.KeyRead(ctx, kid)
	if errors.Is(err, ErrKeyNotFound) {
		if refresher, ok := g.keys.(keyRefresher); ok && g.refresh.Allow() {
			ks, err = refresher.RefreshKeys(ctx)
			if err != nil {
				return nil, ErrKeySetUnavailable(err)
			}
			if storage, err = ks.Storage(ctx); err == nil {
				_, err = storage.KeyRead(ctx, kid)
			}
		}
	}
	if err != nil {
		return nil, ErrInvalidHeader("Unable to find the appropriate key.", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		return nil, ErrInvalidHeader("Unable to find the appropriate key.", err)
	}

	return kf, nil
}

// classifyParseError maps jwt verification errors onto the gate's error codes.
func classifyParseError(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired(err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrInvalidClaims("Incorrect claims. Please, check the audience and issuer.", err)
	default:
		return ErrInvalidHeader("Unable to parse authentication token.", err)
	}
}
