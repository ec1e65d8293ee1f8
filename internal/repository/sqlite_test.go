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

func newSQLiteTestEnv(t *testing.T) (context.Context, *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()

	repo, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(repo.Close)

	if err := migrate.Run(ctx, repo.DB(), migrate.SQLite, nil); err != nil {
		t.Fatalf("migrate.Run() error = %v", err)
	}

	return ctx, repo
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	drink := testutil.NewTestDrink(t, "water")
	drink.Recipe = model.Recipe{
		{Name: "water", Color: "blue", Parts: 1},
		{Name: "ice", Color: "white", Parts: 2},
	}

	if err := repo.CreateDrink(ctx, drink); err != nil {
		t.Fatalf("CreateDrink() error = %v", err)
	}

	got, err := repo.GetDrinkByID(ctx, drink.ID)
	if err != nil {
		t.Fatalf("GetDrinkByID() error = %v", err)
	}
	if got.Title != "water" {
		t.Errorf("Title = %q, want water", got.Title)
	}
	if len(got.Recipe) != 2 || got.Recipe[1].Name != "ice" || got.Recipe[1].Parts != 2 {
		t.Errorf("unexpected recipe: %+v", got.Recipe)
	}
	if !got.CreatedAt.Equal(drink.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, drink.CreatedAt)
	}
}

func TestSQLiteRepository_GetMissing(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	if _, err := repo.GetDrinkByID(ctx, "missing"); !errors.Is(err, ErrDrinkNotFound) {
		t.Fatalf("expected ErrDrinkNotFound, got %v", err)
	}
}

func TestSQLiteRepository_InvalidUTF8ID(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	const id = "\xff\xfe"
	if _, err := repo.GetDrinkByID(ctx, id); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("GetDrinkByID: expected ErrDrinkNotFound, got %v", err)
	}
	ghost := testutil.NewTestDrink(t, "ghost")
	ghost.ID = id
	if err := repo.UpdateDrink(ctx, ghost); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("UpdateDrink: expected ErrDrinkNotFound, got %v", err)
	}
	if err := repo.DeleteDrink(ctx, id); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("DeleteDrink: expected ErrDrinkNotFound, got %v", err)
	}
}

func TestValidID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"01ARZ3NDEKTSV4RRFFQ69G5FAV", true},
		{"caf\u00e9", true},
		{"", true},
		{"\xff", false},
		{"ok\xc3", false},
	}
	for _, tt := range tests {
		if got := validID(tt.id); got != tt.want {
			t.Errorf("validID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestSQLiteRepository_DuplicateTitle(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	first := testutil.NewTestDrink(t, "latte")
	second := testutil.NewTestDrink(t, "latte")
	second.ID = first.ID + "-2"

	if err := repo.CreateDrink(ctx, first); err != nil {
		t.Fatalf("CreateDrink() error = %v", err)
	}
	if err := repo.CreateDrink(ctx, second); !errors.Is(err, ErrTitleExists) {
		t.Fatalf("expected ErrTitleExists, got %v", err)
	}
}

func TestSQLiteRepository_ListOrderedByID(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	for _, d := range []struct{ id, title string }{
		{"01B", "mocha"},
		{"01A", "water"},
		{"01C", "flat white"},
	} {
		drink := testutil.NewTestDrink(t, d.title)
		drink.ID = d.id
		if err := repo.CreateDrink(ctx, drink); err != nil {
			t.Fatalf("CreateDrink(%s) error = %v", d.id, err)
		}
	}

	drinks, err := repo.ListDrinks(ctx)
	if err != nil {
		t.Fatalf("ListDrinks() error = %v", err)
	}
	if len(drinks) != 3 {
		t.Fatalf("expected 3 drinks, got %d", len(drinks))
	}
	for i, want := range []string{"01A", "01B", "01C"} {
		if drinks[i].ID != want {
			t.Errorf("drinks[%d].ID = %q, want %q", i, drinks[i].ID, want)
		}
	}

	count, err := repo.CountDrinks(ctx)
	if err != nil {
		t.Fatalf("CountDrinks() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CountDrinks() = %d, want 3", count)
	}
}

func TestSQLiteRepository_ListEmpty(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	drinks, err := repo.ListDrinks(ctx)
	if err != nil {
		t.Fatalf("ListDrinks() error = %v", err)
	}
	if drinks == nil || len(drinks) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", drinks)
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	drink := testutil.NewTestDrink(t, "americano")
	if err := repo.CreateDrink(ctx, drink); err != nil {
		t.Fatalf("CreateDrink() error = %v", err)
	}

	drink.Title = "long black"
	drink.UpdatedAt = drink.UpdatedAt.Add(time.Minute)
	if err := repo.UpdateDrink(ctx, drink); err != nil {
		t.Fatalf("UpdateDrink() error = %v", err)
	}

	got, err := repo.GetDrinkByID(ctx, drink.ID)
	if err != nil {
		t.Fatalf("GetDrinkByID() error = %v", err)
	}
	if got.Title != "long black" {
		t.Errorf("Title = %q, want long black", got.Title)
	}
	if len(got.Recipe) != 1 || got.Recipe[0].Name != "water" {
		t.Errorf("recipe changed unexpectedly: %+v", got.Recipe)
	}
	if !got.UpdatedAt.Equal(drink.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, drink.UpdatedAt)
	}

	missing := testutil.NewTestDrink(t, "ghost")
	if err := repo.UpdateDrink(ctx, missing); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("expected ErrDrinkNotFound for unknown id, got %v", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	drink := testutil.NewTestDrink(t, "espresso")
	if err := repo.CreateDrink(ctx, drink); err != nil {
		t.Fatalf("CreateDrink() error = %v", err)
	}

	if err := repo.DeleteDrink(ctx, drink.ID); err != nil {
		t.Fatalf("DeleteDrink() error = %v", err)
	}
	if _, err := repo.GetDrinkByID(ctx, drink.ID); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("expected deleted drink to be gone, got %v", err)
	}
	if err := repo.DeleteDrink(ctx, drink.ID); !errors.Is(err, ErrDrinkNotFound) {
		t.Errorf("expected ErrDrinkNotFound on second delete, got %v", err)
	}
}

func TestSQLiteRepository_LegacySingleObjectRecipe(t *testing.T) {
	ctx, repo := newSQLiteTestEnv(t)

	_, err := repo.DB().ExecContext(ctx, `
		INSERT INTO drinks (id, title, recipe, created_at, updated_at)
		VALUES ('legacy', 'legacy', '{"name":"water","color":"blue","parts":1}', '', '')
	`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.GetDrinkByID(ctx, "legacy")
	if err != nil {
		t.Fatalf("GetDrinkByID() error = %v", err)
	}
	if len(got.Recipe) != 1 || got.Recipe[0].Color != "blue" {
		t.Errorf("expected single object decoded as one-element list, got %+v", got.Recipe)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
