package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coffeeshop/coffeeshop/internal/auth"
	"github.com/coffeeshop/coffeeshop/internal/handler/dto"
	"github.com/coffeeshop/coffeeshop/internal/service"
)

// errMissingField is returned when a create body lacks title or recipe.
var errMissingField = errors.New("title and recipe are required")

// DrinkHandler handles HTTP requests for the drinks menu.
type DrinkHandler struct {
	svc    *service.DrinkService
	logger *slog.Logger
}

// NewDrinkHandler creates a new DrinkHandler.
func NewDrinkHandler(svc *service.DrinkService, logger *slog.Logger) *DrinkHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DrinkHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /drinks.
func (h *DrinkHandler) List(w http.ResponseWriter, r *http.Request) {
	drinks, err := h.svc.ListDrinks(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	views := make([]dto.ShortDrink, 0, len(drinks))
	for _, d := range drinks {
		views = append(views, dto.Short(d))
	}

	writeJSON(w, http.StatusOK, dto.ShortDrinksResponse{Success: true, Drinks: views})
}

// ListDetailed handles GET /drinks-detail.
func (h *DrinkHandler) ListDetailed(w http.ResponseWriter, r *http.Request) {
	drinks, err := h.svc.ListDrinks(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	views := make([]dto.LongDrink, 0, len(drinks))
	for _, d := range drinks {
		views = append(views, dto.Long(d))
	}

	writeJSON(w, http.StatusOK, dto.LongDrinksResponse{Success: true, Drinks: views})
}

// Create handles POST /drinks.
func (h *DrinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDrinkRequest(r)
	if err != nil {
		h.writeBodyError(w, r, err)
		return
	}
	if !req.HasTitle() || !req.HasRecipe() {
		h.writeUnprocessable(w, r, errMissingField)
		return
	}

	title, err := req.DecodeTitle()
	if err != nil {
		h.writeUnprocessable(w, r, err)
		return
	}
	recipe, err := req.DecodeRecipe()
	if err != nil {
		h.writeUnprocessable(w, r, err)
		return
	}

	drink, err := h.svc.CreateDrink(r.Context(), service.CreateDrinkInput{
		Title:  title,
		Recipe: recipe,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("drink_created",
		"drink_id", drink.ID,
		"subject", auth.SubjectFromContext(r.Context()),
		"ingredients", len(drink.Recipe),
	)

	writeJSON(w, http.StatusOK, dto.LongDrinksResponse{
		Success: true,
		Drinks:  []dto.LongDrink{dto.Long(*drink)},
	})
}

// Update handles PATCH /drinks/{id}.
func (h *DrinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	input, parseErr := parseUpdate(r, id)
	if parseErr != nil {
		// An unknown id wins over a bad body, but not over an oversized one.
		if !isBodyTooLarge(parseErr) {
			if _, err := h.svc.GetDrink(r.Context(), id); err != nil {
				h.handleServiceError(w, r, err)
				return
			}
		}
		h.writeBodyError(w, r, parseErr)
		return
	}

	drink, err := h.svc.UpdateDrink(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("drink_updated",
		"drink_id", drink.ID,
		"subject", auth.SubjectFromContext(r.Context()),
		"title_changed", input.Title != nil,
		"recipe_changed", input.Recipe != nil,
	)

	writeJSON(w, http.StatusOK, dto.LongDrinksResponse{
		Success: true,
		Drinks:  []dto.LongDrink{dto.Long(*drink)},
	})
}

// Delete handles DELETE /drinks/{id}.
func (h *DrinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteDrink(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("drink_deleted",
		"drink_id", id,
		"subject", auth.SubjectFromContext(r.Context()),
	)

	writeJSON(w, http.StatusOK, dto.DeleteDrinkResponse{Success: true, Delete: id})
}

// decodeDrinkRequest reads a JSON object body.
func decodeDrinkRequest(r *http.Request) (dto.DrinkRequest, error) {
	var req dto.DrinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return dto.DrinkRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// parseUpdate turns a PATCH body into service input. Only present fields are set.
func parseUpdate(r *http.Request, id string) (service.UpdateDrinkInput, error) {
	input := service.UpdateDrinkInput{ID: id}

	req, err := decodeDrinkRequest(r)
	if err != nil {
		return input, err
	}

	if req.HasTitle() {
		title, err := req.DecodeTitle()
		if err != nil {
			return input, err
		}
		input.Title = &title
	}

	if req.HasRecipe() {
		recipe, err := req.DecodeRecipe()
		if err != nil {
			return input, err
		}
		input.Recipe = &recipe
	}

	return input, nil
}

// handleServiceError maps service errors to HTTP responses.
func (h *DrinkHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrDrinkNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, service.ErrInvalidDrink),
		errors.Is(err, service.ErrTitleExists):
		h.writeUnprocessable(w, r, err)
	default:
		h.logger.Error("internal_error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeBodyError answers an undecodable body: 413 when the size limit cut
// it off, 422 otherwise.
func (h *DrinkHandler) writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	if isBodyTooLarge(err) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	h.writeUnprocessable(w, r, err)
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func (h *DrinkHandler) writeUnprocessable(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug("unprocessable drink request",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusUnprocessableEntity, "unprocessable")
}
