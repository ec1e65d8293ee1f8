// Package service provides business logic for the application.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/coffeeshop/coffeeshop/internal/cache"
	"github.com/coffeeshop/coffeeshop/internal/metrics"
	"github.com/coffeeshop/coffeeshop/internal/model"
	"github.com/coffeeshop/coffeeshop/internal/repository"
)

// Service errors.
var (
	ErrDrinkNotFound = errors.New("drink not found")
	ErrInvalidDrink  = errors.New("invalid drink")
	ErrTitleExists   = errors.New("drink title already exists")
	ErrNoChanges     = errors.New("title or recipe is required")
)

// DrinkStore persists drinks. Implemented by repository.Repository and
// repository.SQLiteRepository.
type DrinkStore interface {
	CreateDrink(ctx context.Context, drink *model.Drink) error
	GetDrinkByID(ctx context.Context, id string) (*model.Drink, error)
	ListDrinks(ctx context.Context) ([]model.Drink, error)
	CountDrinks(ctx context.Context) (int, error)
	UpdateDrink(ctx context.Context, drink *model.Drink) error
	DeleteDrink(ctx context.Context, id string) error
}

// MenuCache caches the full drink list per generation.
// GetMenu returns cache.ErrCacheMiss when the current generation is empty,
// along with that generation. SetMenu fills the given generation only, and
// InvalidateMenu starts a new one.
type MenuCache interface {
	GetMenu(ctx context.Context) ([]model.Drink, int64, error)
	SetMenu(ctx context.Context, version int64, drinks []model.Drink) error
	InvalidateMenu(ctx context.Context) error
}

// DrinkService handles drink business logic.
type DrinkService struct {
	store   DrinkStore
	cache   MenuCache
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewDrinkService creates a new DrinkService. menuCache may be nil.
func NewDrinkService(store DrinkStore, menuCache MenuCache, recorder metrics.Recorder, logger *slog.Logger) *DrinkService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DrinkService{
		store:   store,
		cache:   menuCache,
		metrics: recorder,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateDrinkInput defines input for creating a drink.
type CreateDrinkInput struct {
	Title  string
	Recipe model.Recipe
}

// UpdateDrinkInput defines input for a partial update.
// A nil field is left unchanged.
type UpdateDrinkInput struct {
	ID     string
	Title  *string
	Recipe *model.Recipe
}

// ListDrinks returns every drink, served from the menu cache when possible.
// A store read fills the generation observed before the read, so a write
// committed meanwhile never leaves a stale list in the live generation.
func (s *DrinkService) ListDrinks(ctx context.Context) ([]model.Drink, error) {
	fill := false
	var version int64
	if s.cache != nil {
		drinks, v, err := s.cache.GetMenu(ctx)
		switch {
		case err == nil:
			s.metrics.IncMenuCacheHit()
			return drinks, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.IncMenuCacheMiss()
			fill, version = true, v
		default:
			s.metrics.IncMenuCacheMiss()
			s.logger.Warn("menu cache read failed", slog.String("error", err.Error()))
		}
	}

	start := time.Now()
	drinks, err := s.store.ListDrinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	s.metrics.ObserveMenuLoadDuration(time.Since(start))

	if fill {
		if err := s.cache.SetMenu(ctx, version, drinks); err != nil {
			s.logger.Warn("menu cache write failed", slog.String("error", err.Error()))
		}
	}

	return drinks, nil
}

// GetDrink returns a single drink.
func (s *DrinkService) GetDrink(ctx context.Context, id string) (*model.Drink, error) {
	drink, err := s.store.GetDrinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDrinkNotFound) {
			return nil, ErrDrinkNotFound
		}
		return nil, fmt.Errorf("failed to get drink: %w", err)
	}
	return drink, nil
}

// CreateDrink validates and stores a new drink.
func (s *DrinkService) CreateDrink(ctx context.Context, input CreateDrinkInput) (*model.Drink, error) {
	now := s.now()
	drink := &model.Drink{
		ID:        generateULID(),
		Title:     strings.TrimSpace(input.Title),
		Recipe:    input.Recipe,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := drink.Validate(); err != nil {
		return nil, invalid(err)
	}

	if err := s.store.CreateDrink(ctx, drink); err != nil {
		if errors.Is(err, repository.ErrTitleExists) {
			return nil, ErrTitleExists
		}
		return nil, fmt.Errorf("failed to create drink: %w", err)
	}

	s.metrics.IncDrinkCreated()
	s.invalidateMenu(ctx)

	return drink, nil
}

// UpdateDrink applies a partial update. Unknown ids are reported before
// the payload is validated.
func (s *DrinkService) UpdateDrink(ctx context.Context, input UpdateDrinkInput) (*model.Drink, error) {
	drink, err := s.GetDrink(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Title == nil && input.Recipe == nil {
		return nil, invalid(ErrNoChanges)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := model.ValidateTitle(title); err != nil {
			return nil, invalid(err)
		}
		drink.Title = title
	}

	if input.Recipe != nil {
		if err := input.Recipe.Validate(); err != nil {
			return nil, invalid(err)
		}
		drink.Recipe = *input.Recipe
	}

	drink.UpdatedAt = s.now()

	if err := s.store.UpdateDrink(ctx, drink); err != nil {
		switch {
		case errors.Is(err, repository.ErrDrinkNotFound):
			return nil, ErrDrinkNotFound
		case errors.Is(err, repository.ErrTitleExists):
			return nil, ErrTitleExists
		}
		return nil, fmt.Errorf("failed to update drink: %w", err)
	}

	s.metrics.IncDrinkUpdated()
	s.invalidateMenu(ctx)

	return drink, nil
}

// DeleteDrink removes a drink.
func (s *DrinkService) DeleteDrink(ctx context.Context, id string) error {
	if err := s.store.DeleteDrink(ctx, id); err != nil {
		if errors.Is(err, repository.ErrDrinkNotFound) {
			return ErrDrinkNotFound
		}
		return fmt.Errorf("failed to delete drink: %w", err)
	}

	s.metrics.IncDrinkDeleted()
	s.invalidateMenu(ctx)

	return nil
}

// SeedDrink is the starter menu entry.
var SeedDrink = CreateDrinkInput{
	Title:  "water",
	Recipe: model.Recipe{{Name: "water", Color: "blue", Parts: 1}},
}

// Seed inserts SeedDrink when the menu is empty.
// It reports whether a drink was inserted.
func (s *DrinkService) Seed(ctx context.Context) (bool, error) {
	count, err := s.store.CountDrinks(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count drinks: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := s.CreateDrink(ctx, SeedDrink); err != nil {
		return false, err
	}
	return true, nil
}

func (s *DrinkService) invalidateMenu(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMenu(ctx); err != nil {
		s.logger.Warn("menu cache invalidation failed", slog.String("error", err.Error()))
	}
}

// invalid marks a model validation error as ErrInvalidDrink.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidDrink, err)
}

// idEntropy keeps ids generated within the same millisecond increasing.
var idEntropy = &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)}

// generateULID creates a new ULID.
func generateULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}
