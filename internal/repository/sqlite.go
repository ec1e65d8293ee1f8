package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/coffeeshop/coffeeshop/internal/model"
)

// SQLitePrefix marks a DATABASE_URL that selects the embedded store.
const SQLitePrefix = "sqlite:"

// sqliteTimeLayout is the stored timestamp format. It sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository is the embedded SQLite drink store.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
// ":memory:" yields a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// An in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// DB returns the underlying database handle.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// Ping checks database connectivity.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *SQLiteRepository) Close() {
	_ = r.db.Close()
}

// CreateDrink inserts a new drink.
func (r *SQLiteRepository) CreateDrink(ctx context.Context, drink *model.Drink) error {
	recipe, err := drink.Recipe.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO drinks (id, title, recipe, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		drink.ID,
		drink.Title,
		string(recipe),
		formatSQLiteTime(drink.CreatedAt),
		formatSQLiteTime(drink.UpdatedAt),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrTitleExists
		}
		return fmt.Errorf("failed to create drink: %w", err)
	}

	return nil
}

// GetDrinkByID retrieves a drink by its ID.
func (r *SQLiteRepository) GetDrinkByID(ctx context.Context, id string) (*model.Drink, error) {
	if !validID(id) {
		return nil, ErrDrinkNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+drinkColumns+` FROM drinks WHERE id = ?`, id)

	drink, err := scanSQLiteDrink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDrinkNotFound
		}
		return nil, fmt.Errorf("failed to get drink by ID: %w", err)
	}

	return drink, nil
}

// ListDrinks returns every drink in creation order.
func (r *SQLiteRepository) ListDrinks(ctx context.Context) ([]model.Drink, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+drinkColumns+` FROM drinks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	drinks := make([]model.Drink, 0)
	for rows.Next() {
		drink, err := scanSQLiteDrink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drink: %w", err)
		}
		drinks = append(drinks, *drink)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drinks: %w", err)
	}

	return drinks, nil
}

// CountDrinks returns the number of stored drinks.
func (r *SQLiteRepository) CountDrinks(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drinks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count drinks: %w", err)
	}
	return count, nil
}

// UpdateDrink overwrites the title and recipe of an existing drink.
func (r *SQLiteRepository) UpdateDrink(ctx context.Context, drink *model.Drink) error {
	if !validID(drink.ID) {
		return ErrDrinkNotFound
	}

	recipe, err := drink.Recipe.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE drinks
		SET title = ?, recipe = ?, updated_at = ?
		WHERE id = ?
	`, drink.Title, string(recipe), formatSQLiteTime(drink.UpdatedAt), drink.ID)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrTitleExists
		}
		return fmt.Errorf("failed to update drink: %w", err)
	}

	return requireAffected(res)
}

// DeleteDrink removes a drink.
func (r *SQLiteRepository) DeleteDrink(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrDrinkNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM drinks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete drink: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrDrinkNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDrink(row rowScanner) (*model.Drink, error) {
	var (
		drink              model.Drink
		recipe             string
		createdAt, updated string
	)

	if err := row.Scan(&drink.ID, &drink.Title, &recipe, &createdAt, &updated); err != nil {
		return nil, err
	}

	decoded, err := model.DecodeRecipe([]byte(recipe))
	if err != nil {
		return nil, fmt.Errorf("drink %s: %w", drink.ID, err)
	}
	drink.Recipe = decoded

	if drink.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, fmt.Errorf("drink %s created_at: %w", drink.ID, err)
	}
	if drink.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return nil, fmt.Errorf("drink %s updated_at: %w", drink.ID, err)
	}

	return &drink, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// isSQLiteUniqueViolation reports a UNIQUE or PRIMARY KEY constraint failure.
func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
