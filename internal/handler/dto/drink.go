// Package dto defines the JSON bodies exchanged over HTTP.
package dto

import (
	"encoding/json"
	"errors"

	"github.com/coffeeshop/coffeeshop/internal/model"
)

// ShortIngredient is an ingredient without its parts count.
type ShortIngredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ShortDrink is the public view of a drink.
type ShortDrink struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// LongIngredient is an ingredient with its parts count.
type LongIngredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// LongDrink is the detailed view of a drink.
type LongDrink struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Recipe []LongIngredient `json:"recipe"`
}

// Short builds the public view.
func Short(d model.Drink) ShortDrink {
	recipe := make([]ShortIngredient, 0, len(d.Recipe))
	for _, ing := range d.Recipe {
		recipe = append(recipe, ShortIngredient{Name: ing.Name, Color: ing.Color})
	}
	return ShortDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// Long builds the detailed view.
func Long(d model.Drink) LongDrink {
	recipe := make([]LongIngredient, 0, len(d.Recipe))
	for _, ing := range d.Recipe {
		recipe = append(recipe, LongIngredient{Name: ing.Name, Color: ing.Color, Parts: ing.Parts})
	}
	return LongDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// ShortDrinksResponse is returned by GET /drinks.
type ShortDrinksResponse struct {
	Success bool         `json:"success"`
	Drinks  []ShortDrink `json:"drinks"`
}

// LongDrinksResponse is returned by GET /drinks-detail, POST and PATCH.
type LongDrinksResponse struct {
	Success bool        `json:"success"`
	Drinks  []LongDrink `json:"drinks"`
}

// DeleteDrinkResponse is returned by DELETE /drinks/{id}.
type DeleteDrinkResponse struct {
	Success bool   `json:"success"`
	Delete  string `json:"delete"`
}

// ErrorResponse is the uniform failure envelope.
// Code is only set for authorization failures.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// NewErrorResponse builds a failure envelope.
func NewErrorResponse(status int, message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: status, Message: message}
}

// ErrTitleNotString is returned when title is not a JSON string.
var ErrTitleNotString = errors.New("title must be a string")

// DrinkRequest is the body of POST /drinks and PATCH /drinks/{id}.
// Each field keeps the raw JSON so presence can be told apart from
// absence; an explicit null counts as absent.
type DrinkRequest struct {
	Title  json.RawMessage `json:"title"`
	Recipe json.RawMessage `json:"recipe"`
}

// present reports whether a raw field was sent with a non-null value.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// HasTitle reports whether a title was sent.
func (r DrinkRequest) HasTitle() bool { return present(r.Title) }

// HasRecipe reports whether a recipe was sent.
func (r DrinkRequest) HasRecipe() bool { return present(r.Recipe) }

// DecodeTitle returns the title, which must be a JSON string.
func (r DrinkRequest) DecodeTitle() (string, error) {
	var title string
	if err := json.Unmarshal(r.Title, &title); err != nil {
		return "", ErrTitleNotString
	}
	return title, nil
}

// DecodeRecipe returns the recipe as an ingredient list.
func (r DrinkRequest) DecodeRecipe() (model.Recipe, error) {
	var recipe model.Recipe
	if err := json.Unmarshal(r.Recipe, &recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}
