// Package model defines domain entities for the application.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Recipe validation errors.
var (
	ErrEmptyRecipe        = errors.New("recipe must contain at least one ingredient")
	ErrInvalidRecipe      = errors.New("recipe must be an ingredient object or a list of ingredients")
	ErrIngredientName     = errors.New("ingredient name is required")
	ErrIngredientColor    = errors.New("ingredient color is required")
	ErrIngredientParts    = errors.New("ingredient parts must be at least 1")
	ErrEmptyTitle         = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title exceeds maximum length")
	ErrTooManyIngredients = errors.New("recipe has too many ingredients")
)

const (
	// MaxTitleLength is the maximum length of a drink title in bytes.
	MaxTitleLength = 80
	// MaxIngredients bounds the number of ingredients in a single recipe.
	MaxIngredients = 32
)

// Ingredient is one component of a drink recipe.
type Ingredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// Validate checks a single ingredient.
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrIngredientName
	}
	if strings.TrimSpace(i.Color) == "" {
		return ErrIngredientColor
	}
	if i.Parts < 1 {
		return ErrIngredientParts
	}
	return nil
}

// Recipe is the ordered list of ingredients making up a drink.
// It decodes from either a single ingredient object or an array of them,
// and always encodes as an array.
type Recipe []Ingredient

// UnmarshalJSON accepts `{...}` as well as `[{...}, ...]`.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrInvalidRecipe
	}

	switch trimmed[0] {
	case '{':
		var single Ingredient
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
		}
		*r = Recipe{single}
		return nil
	case '[':
		var list []Ingredient
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
		}
		*r = Recipe(list)
		return nil
	case 'n':
		// null leaves the recipe unset
		return nil
	default:
		return ErrInvalidRecipe
	}
}

// Validate checks that the recipe is non-empty and every ingredient is valid.
func (r Recipe) Validate() error {
	if len(r) == 0 {
		return ErrEmptyRecipe
	}
	if len(r) > MaxIngredients {
		return ErrTooManyIngredients
	}
	for idx, ing := range r {
		if err := ing.Validate(); err != nil {
			return fmt.Errorf("ingredient %d: %w", idx, err)
		}
	}
	return nil
}

// Encode serializes the recipe for storage. The stored form is always a JSON array.
func (r Recipe) Encode() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Ingredient(r))
}

// DecodeRecipe parses a stored recipe column.
func DecodeRecipe(data []byte) (Recipe, error) {
	var r Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrInvalidRecipe
	}
	return r, nil
}

// Drink is a menu item.
type Drink struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Recipe    Recipe    `json:"recipe"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateTitle checks a drink title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// Validate checks all mutable fields of the drink.
func (d *Drink) Validate() error {
	if err := ValidateTitle(d.Title); err != nil {
		return err
	}
	return d.Recipe.Validate()
}

// Permissions granted by the identity provider.
const (
	PermissionGetDrinksDetail = "get:drinks-detail"
	PermissionPostDrinks      = "post:drinks"
	PermissionPatchDrinks     = "patch:drinks"
	PermissionDeleteDrinks    = "delete:drinks"
)
