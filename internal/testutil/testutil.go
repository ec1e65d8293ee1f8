package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/coffeeshop/coffeeshop/internal/auth"
	"github.com/coffeeshop/coffeeshop/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 424242

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateDrinks empties the drinks table.
func TruncateDrinks(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE drinks"); err != nil {
		return fmt.Errorf("truncate drinks: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Token Fixtures
// ============================================================================

const (
	TestIssuer   = "https://coffeeshop.test.auth0.com/"
	TestAudience = "coffeeshop"
	TestKeyID    = "test-key-1"
)

// TokenIssuer signs RS256 access tokens with an in-memory key.
type TokenIssuer struct {
	Key      *rsa.PrivateKey
	KeyID    string
	Issuer   string
	Audience string
}

// NewTokenIssuer generates a fresh RSA key for a test.
func NewTokenIssuer(t testing.TB) *TokenIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return &TokenIssuer{
		Key:      key,
		KeyID:    TestKeyID,
		Issuer:   TestIssuer,
		Audience: TestAudience,
	}
}

// KeySet returns the public JWKS for the issuer's key.
func (i *TokenIssuer) KeySet(t testing.TB) *auth.KeySet {
	t.Helper()
	ks, err := auth.NewRSAKeySet(i.KeyID, &i.Key.PublicKey)
	if err != nil {
		t.Fatalf("build key set: %v", err)
	}
	return ks
}

// Gate returns a gate that trusts this issuer.
func (i *TokenIssuer) Gate(t testing.TB) *auth.Gate {
	t.Helper()
	return auth.NewGate(auth.StaticKeySetProvider{Keys: i.KeySet(t)}, auth.GateConfig{
		Issuer:   i.Issuer,
		Audience: i.Audience,
	})
}

// Claims returns valid claims carrying the given permissions.
func (i *TokenIssuer) Claims(permissions ...string) *auth.Claims {
	now := time.Now()
	if permissions == nil {
		permissions = []string{}
	}
	return &auth.Claims{
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.Issuer,
			Audience:  jwt.ClaimStrings{i.Audience},
			Subject:   "auth0|test-user",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

// Sign signs arbitrary claims with the issuer's key and kid header.
func (i *TokenIssuer) Sign(t testing.TB, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = i.KeyID
	signed, err := token.SignedString(i.Key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// Token returns a valid signed token carrying the given permissions.
func (i *TokenIssuer) Token(t testing.TB, permissions ...string) string {
	t.Helper()
	return i.Sign(t, i.Claims(permissions...))
}

// BearerHeader returns an Authorization header value for a valid token.
func (i *TokenIssuer) BearerHeader(t testing.TB, permissions ...string) string {
	t.Helper()
	return "Bearer " + i.Token(t, permissions...)
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestRecipe returns a single-ingredient recipe.
func NewTestRecipe(name, color string, parts int) model.Recipe {
	return model.Recipe{{Name: name, Color: color, Parts: parts}}
}

// NewTestDrink creates a test drink with sensible defaults.
func NewTestDrink(t testing.TB, title string) *model.Drink {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Drink{
		ID:        UniqueID("drink"),
		Title:     title,
		Recipe:    NewTestRecipe("water", "blue", 1),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UniqueTitle generates a unique drink title for tests.
func UniqueTitle(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
