package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
)

// ErrKeyNotFound is returned when no usable key carries the requested kid.
var ErrKeyNotFound = jwkset.ErrKeyNotFound

// KeySet is the identity provider's published signing-key set.
type KeySet struct {
	Keys []jwkset.JWKMarshal `json:"keys"`
}

// NewRSAKeySet builds a single-key set from an RSA public key.
func NewRSAKeySet(kid string, pub *rsa.PublicKey) (*KeySet, error) {
	jwk, err := jwkset.NewJWKFromKey(pub, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgRS256,
			KID: kid,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build jwk: %w", err)
	}
	return &KeySet{Keys: []jwkset.JWKMarshal{jwk.Marshal()}}, nil
}

// Storage loads the set into a jwkset storage.
// Keys that cannot be decoded are skipped so one bad entry does not disable the rest.
func (ks *KeySet) Storage(ctx context.Context) (jwkset.Storage, error) {
	storage := jwkset.NewMemoryStorage()
	if ks == nil {
		return storage, nil
	}

	for _, marshal := range ks.Keys {
		jwk, err := jwkset.NewJWKFromMarshal(marshal, jwkset.JWKMarshalOptions{}, jwkset.JWKValidateOptions{})
		if err != nil {
			continue
		}
		if err := storage.KeyWrite(ctx, jwk); err != nil {
			return nil, fmt.Errorf("store jwk %q: %w", marshal.KID, err)
		}
	}

	return storage, nil
}

// KeySetProvider returns the identity provider's current signing keys.
type KeySetProvider interface {
	CurrentKeys(ctx context.Context) (*KeySet, error)
}

// StaticKeySetProvider serves a fixed key set.
type StaticKeySetProvider struct {
	Keys *KeySet
}

// CurrentKeys returns the fixed key set.
func (p StaticKeySetProvider) CurrentKeys(_ context.Context) (*KeySet, error) {
	return p.Keys, nil
}

// keySetFetchTimeout bounds a single JWKS request.
const keySetFetchTimeout = 5 * time.Second

// HTTPKeySetProvider fetches the key set from a JWKS endpoint on every call.
type HTTPKeySetProvider struct {
	url    string
	client *http.Client
}

// NewHTTPKeySetProvider creates a provider for the given JWKS URL.
// A nil client gets a timeout-bounded default.
func NewHTTPKeySetProvider(url string, client *http.Client) *HTTPKeySetProvider {
	if client == nil {
		client = &http.Client{
			Timeout: keySetFetchTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   keySetFetchTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   keySetFetchTimeout,
				ResponseHeaderTimeout: keySetFetchTimeout,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}
	return &HTTPKeySetProvider{url: url, client: client}
}

// CurrentKeys downloads the JWKS document and returns its public keys.
func (p *HTTPKeySetProvider) CurrentKeys(ctx context.Context) (*KeySet, error) {
	storage, err := jwkset.NewStorageFromHTTP(p.url, jwkset.HTTPClientStorageOptions{
		Client:      p.client,
		Ctx:         ctx,
		HTTPTimeout: keySetFetchTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	marshal, err := storage.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}

	return &KeySet{Keys: marshal.Keys}, nil
}

// KeySetCache stores a key set between requests.
// Get returns (nil, nil) on a miss.
type KeySetCache interface {
	GetKeySet(ctx context.Context) (*KeySet, error)
	SetKeySet(ctx context.Context, ks *KeySet) error
}

// CachedKeySetProvider serves keys from a cache and falls back to an upstream provider.
type CachedKeySetProvider struct {
	upstream KeySetProvider
	cache    KeySetCache
	logger   *slog.Logger
}

// NewCachedKeySetProvider wraps upstream with cache.
func NewCachedKeySetProvider(upstream KeySetProvider, cache KeySetCache, logger *slog.Logger) *CachedKeySetProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedKeySetProvider{
		upstream: upstream,
		cache:    cache,
		logger:   logger,
	}
}

// CurrentKeys returns the cached key set or fetches and caches a fresh one.
// Cache failures are logged and never fail the call.
func (p *CachedKeySetProvider) CurrentKeys(ctx context.Context) (*KeySet, error) {
	ks, err := p.cache.GetKeySet(ctx)
	if err != nil {
		p.logger.Warn("jwks cache read failed", slog.String("error", err.Error()))
	}
	if ks != nil {
		return ks, nil
	}

	return p.RefreshKeys(ctx)
}

// RefreshKeys bypasses the cache, fetches the upstream key set and stores it.
// The gate calls it when a token names a kid the cached set does not know.
func (p *CachedKeySetProvider) RefreshKeys(ctx context.Context) (*KeySet, error) {
	ks, err := p.upstream.CurrentKeys(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetKeySet(ctx, ks); err != nil {
		p.logger.Warn("jwks cache write failed", slog.String("error", err.Error()))
	}

	return ks, nil
}
