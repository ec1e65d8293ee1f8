//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coffeeshop/coffeeshop/internal/migrate"
	"github.com/coffeeshop/coffeeshop/internal/model"
	"github.com/coffeeshop/coffeeshop/internal/testutil"
)

// ============================================================================
// Drink Repository Integration Tests
// ============================================================================

func newDrinkTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	databaseURL := testutil.RequireEnv(t, "DATABASE_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	if err := migrate.RunPostgres(ctx, databaseURL, nil); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	repo, err := New(ctx, databaseURL)
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

	return ctx, repo
}

func TestIntegrationDrinkRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newDrinkTestEnv(t)

	drink := testutil.NewTestDrink(t, testutil.UniqueTitle("water"))
	drink.Recipe = model.Recipe{
		{Name: "water", Color: "blue", Parts: 1},
		{Name: "lemon", Color: "yellow", Parts: 1},
	}

	if err := repo.CreateDrink(ctx, drink); err != nil {
		t.Fatalf("CreateDrink failed: %v", err)
	}

	got, err := repo.GetDrinkByID(ctx, drink.ID)
	if err != nil {
		t.Fatalf("GetDrinkByID failed: %v", err)
	}
	if got.Title != drink.Title {
		t.Errorf("Title mismatch: got %q, want %q", got.Title, drink.Title)
	}
	if len(got.Recipe) != 2 || got.Recipe[1].Color != "yellow" {
		t.Errorf("Recipe mismatch: %+v", got.Recipe)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestIntegrationDrinkRepository_DuplicateTitle(t *testing.T) {
	ctx, repo := newDrinkTestEnv(t)

	title := testutil.UniqueTitle("dup")
	first := testutil.NewTestDrink(t, title)
	second := testutil.NewTestDrink(t, title)
	second.ID = first.ID + "-2"

	if err := repo.CreateDrink(ctx, first); err != nil {
		t.Fatalf("CreateDrink (first) failed: %v", err)
	}
	if err := repo.CreateDrink(ctx, second); !errors.Is(err, ErrTitleExists) {
		t.Fatalf("expected ErrTitleExists, got %v", err)
	}
}

func TestIntegrationDrinkRepository_ListUpdateDelete(t *testing.T) {
	ctx, repo := newDrinkTestEnv(t)

	a := testutil.NewTestDrink(t, testutil.UniqueTitle("a"))
	a.ID = "01A"
	b := testutil.NewTestDrink(t, testutil.UniqueTitle("b"))
	b.ID = "01B"
	for _, d := range []*model.Drink{b, a} {
		if err := repo.CreateDrink(ctx, d); err != nil {
			t.Fatalf("CreateDrink failed: %v", err)
		}
	}

	drinks, err := repo.ListDrinks(ctx)
	if err != nil {
		t.Fatalf("ListDrinks failed: %v", err)
	}
	if len(drinks) != 2 || drinks[0].ID != "01A" || drinks[1].ID != "01B" {
		t.Fatalf("unexpected order: %+v", drinks)
	}

	a.Recipe = model.Recipe{{Name: "milk", Color: "white", Parts: 3}}
	a.UpdatedAt = time.Now().UTC()
	if err := repo.UpdateDrink(ctx, a); err != nil {
		t.Fatalf("UpdateDrink failed: %v", err)
	}
	got, err := repo.GetDrinkByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetDrinkByID failed: %v", err)
	}
	if got.Recipe[0].Name != "milk" || got.Recipe[0].Parts != 3 {
		t.Errorf("recipe not updated: %+v", got.Recipe)
	}

	if err := repo.DeleteDrink(ctx, b.ID); err != nil {
		t.Fatalf("DeleteDrink failed: %v", err)
	}
	if err := repo.DeleteDrink(ctx, b.ID); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("expected ErrDrinkNotFound, got %v", err)
	}

	count, err := repo.CountDrinks(ctx)
	if err != nil {
		t.Fatalf("CountDrinks failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountDrinks = %d, want 1", count)
	}
}

func TestIntegrationDrinkRepository_NotFound(t *testing.T) {
	ctx, repo := newDrinkTestEnv(t)

	if _, err := repo.GetDrinkByID(ctx, "nope"); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("expected ErrDrinkNotFound, got %v", err)
	}
	ghost := testutil.NewTestDrink(t, testutil.UniqueTitle("ghost"))
	if err := repo.UpdateDrink(ctx, ghost); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("expected ErrDrinkNotFound, got %v", err)
	}
}

func TestIntegrationDrinkRepository_InvalidUTF8ID(t *testing.T) {
	ctx, repo := newDrinkTestEnv(t)

	const id = "\xff\xfe"
	if _, err := repo.GetDrinkByID(ctx, id); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("GetDrinkByID: expected ErrDrinkNotFound, got %v", err)
	}
	ghost := testutil.NewTestDrink(t, testutil.UniqueTitle("ghost"))
	ghost.ID = id
	if err := repo.UpdateDrink(ctx, ghost); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("UpdateDrink: expected ErrDrinkNotFound, got %v", err)
	}
	if err := repo.DeleteDrink(ctx, id); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("DeleteDrink: expected ErrDrinkNotFound, got %v", err)
	}
}
