//go:build integration

package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coffeeshop/coffeeshop/internal/cache"
	"github.com/coffeeshop/coffeeshop/internal/handler/dto"
	"github.com/coffeeshop/coffeeshop/internal/metrics"
	"github.com/coffeeshop/coffeeshop/internal/middleware"
	"github.com/coffeeshop/coffeeshop/internal/migrate"
	"github.com/coffeeshop/coffeeshop/internal/repository"
	"github.com/coffeeshop/coffeeshop/internal/service"
	"github.com/coffeeshop/coffeeshop/internal/testutil"
)

// TestIntegrationDrinks_PostgresWithRedis runs the full API against
// Postgres and a Redis menu cache.
func TestIntegrationDrinks_PostgresWithRedis(t *testing.T) {
	databaseURL := testutil.RequireEnv(t, "DATABASE_URL")
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	if err := migrate.RunPostgres(ctx, databaseURL, nil); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("failed to lock db: %v", err)
	}
	t.Cleanup(func() { _ = unlock() })
	if err := testutil.TruncateDrinks(ctx, repo.Pool()); err != nil {
		t.Fatalf("failed to reset drinks: %v", err)
	}

	menuCache, err := cache.New(ctx, redisURL, cache.Options{})
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = menuCache.Close() })
	if err := testutil.FlushRedis(ctx, menuCache.Client()); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()
	issuer := testutil.NewTokenIssuer(t)
	svc := service.NewDrinkService(repo, menuCache, recorder, logger)

	env := &testEnv{
		router: NewRouter(RouterConfig{
			Drinks: NewDrinkHandler(svc, logger),
			Health: NewHealthHandler(repo, "postgres", menuCache),
			Permissions: middleware.PermissionConfig{
				Authorizer: issuer.Gate(t),
				Metrics:    recorder,
			},
			Logger: logger,
		}),
		svc:     svc,
		issuer:  issuer,
		metrics: recorder,
	}

	created := env.createDrink(t, waterBody)

	// Miss then hit.
	for i := 0; i < 2; i++ {
		list := decode[dto.ShortDrinksResponse](t, env.do(t, http.MethodGet, "/drinks", "", nil))
		if len(list.Drinks) != 1 || list.Drinks[0].ID != created.ID {
			t.Fatalf("unexpected menu: %+v", list.Drinks)
		}
	}
	snap := recorder.Snapshot()
	if snap.MenuCacheMisses != 1 || snap.MenuCacheHits != 1 {
		t.Errorf("expected one miss and one hit, got %d/%d", snap.MenuCacheMisses, snap.MenuCacheHits)
	}

	// Updates invalidate the cached menu.
	rec := env.do(t, http.MethodPatch, "/drinks/"+created.ID, `{"title":"Still Water"}`, []string{"patch:drinks"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	list := decode[dto.LongDrinksResponse](t, env.do(t, http.MethodGet, "/drinks-detail", "", []string{"get:drinks-detail"}))
	if len(list.Drinks) != 1 || list.Drinks[0].Title != "Still Water" {
		t.Errorf("stale menu after update: %+v", list.Drinks)
	}

	rec = env.do(t, http.MethodPost, "/drinks", `{"title":"Still Water","recipe":{"name":"water","color":"blue","parts":1}}`, []string{"post:drinks"})
	expectError(t, rec, http.StatusUnprocessableEntity, "unprocessable")

	rec = env.do(t, http.MethodDelete, "/drinks/"+created.ID, "", []string{"delete:drinks"})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/drinks/%FF", "", []string{"delete:drinks"})
	expectError(t, rec, http.StatusNotFound, "resource not found")

	short := env.do(t, http.MethodGet, "/drinks", "", nil)
	if !strings.Contains(short.Body.String(), `"drinks":[]`) {
		t.Errorf("deleted drink still cached: %s", short.Body.String())
	}

	ready := httptest.NewRecorder()
	env.router.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if ready.Code != http.StatusOK {
		t.Errorf("readyz status = %d, body = %s", ready.Code, ready.Body.String())
	}
}
