package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/coffeeshop/coffeeshop/internal/model"
)

const drinkColumns = "id, title, recipe, created_at, updated_at"

// CreateDrink inserts a new drink.
func (r *Repository) CreateDrink(ctx context.Context, drink *model.Drink) error {
	recipe, err := drink.Recipe.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}

	query := `
		INSERT INTO drinks (id, title, recipe, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.pool.Exec(ctx, query,
		drink.ID,
		drink.Title,
		recipe,
		drink.CreatedAt,
		drink.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTitleExists
		}
		return fmt.Errorf("failed to create drink: %w", err)
	}

	return nil
}

// GetDrinkByID retrieves a drink by its ID.
func (r *Repository) GetDrinkByID(ctx context.Context, id string) (*model.Drink, error) {
	if !validID(id) {
		return nil, ErrDrinkNotFound
	}

	query := `SELECT ` + drinkColumns + ` FROM drinks WHERE id = $1`

	drink, err := scanDrink(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDrinkNotFound
		}
		return nil, fmt.Errorf("failed to get drink by ID: %w", err)
	}

	return drink, nil
}

// ListDrinks returns every drink in creation order.
func (r *Repository) ListDrinks(ctx context.Context) ([]model.Drink, error) {
	query := `SELECT ` + drinkColumns + ` FROM drinks ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	defer rows.Close()

	drinks := make([]model.Drink, 0)
	for rows.Next() {
		drink, err := scanDrink(rows)
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
func (r *Repository) CountDrinks(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM drinks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count drinks: %w", err)
	}
	return count, nil
}

// UpdateDrink overwrites the title and recipe of an existing drink.
func (r *Repository) UpdateDrink(ctx context.Context, drink *model.Drink) error {
	if !validID(drink.ID) {
		return ErrDrinkNotFound
	}

	recipe, err := drink.Recipe.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}

	query := `
		UPDATE drinks
		SET title = $2, recipe = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, drink.ID, drink.Title, recipe, drink.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTitleExists
		}
		return fmt.Errorf("failed to update drink: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDrinkNotFound
	}

	return nil
}

// DeleteDrink removes a drink.
func (r *Repository) DeleteDrink(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrDrinkNotFound
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM drinks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete drink: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDrinkNotFound
	}
	return nil
}

// scanDrink scans a single row into a Drink.
func scanDrink(row pgx.Row) (*model.Drink, error) {
	var (
		drink  model.Drink
		recipe []byte
	)

	if err := row.Scan(&drink.ID, &drink.Title, &recipe, &drink.CreatedAt, &drink.UpdatedAt); err != nil {
		return nil, err
	}

	decoded, err := model.DecodeRecipe(recipe)
	if err != nil {
		return nil, fmt.Errorf("drink %s: %w", drink.ID, err)
	}
	drink.Recipe = decoded

	return &drink, nil
}

// isUniqueViolation reports a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
