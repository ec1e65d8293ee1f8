// Package main is the entrypoint for the coffee shop API server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/coffeeshop/coffeeshop/internal/auth"
	"github.com/coffeeshop/coffeeshop/internal/cache"
	"github.com/coffeeshop/coffeeshop/internal/config"
	"github.com/coffeeshop/coffeeshop/internal/handler"
	"github.com/coffeeshop/coffeeshop/internal/metrics"
	"github.com/coffeeshop/coffeeshop/internal/middleware"
	"github.com/coffeeshop/coffeeshop/internal/migrate"
	"github.com/coffeeshop/coffeeshop/internal/repository"
	"github.com/coffeeshop/coffeeshop/internal/server"
	"github.com/coffeeshop/coffeeshop/internal/service"
)

// store is a drink store the server can probe and close.
type store interface {
	service.DrinkStore
	Ping(ctx context.Context) error
	Close()
}

func main() {
	seed := flag.Bool("seed", false, "insert the starter drink when the menu is empty")
	flag.Parse()

	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Initialize store
	db, driver, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error(
			"failed to open store",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to store", "driver", driver)

	// Initialize cache; a nil interface keeps the service on the store only.
	var (
		cacheClient *cache.Cache
		menuCache   service.MenuCache
		cacheHealth handler.HealthChecker
	)
	if cfg.CacheEnabled() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cache.Options{
			MenuTTL:   cfg.MenuCacheTTL,
			KeySetTTL: cfg.JWKSCacheTTL,
		})
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			db.Close()
			os.Exit(1)
		}
		menuCache = cacheClient
		cacheHealth = cacheClient
		logger.Info("connected to Redis")
	} else {
		logger.Info("Redis not configured, caching disabled")
	}

	// Signing keys
	var keys auth.KeySetProvider = auth.NewHTTPKeySetProvider(cfg.JWKSURL(), nil)
	if cacheClient != nil {
		keys = auth.NewCachedKeySetProvider(keys, cacheClient, logger)
	}
	gate := auth.NewGate(keys, auth.GateConfig{
		Issuer:          cfg.IssuerURL(),
		Audience:        cfg.APIAudience,
		Algorithms:      cfg.GetAlgorithms(),
		RefreshInterval: cfg.JWKSRefreshInterval,
	})

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	drinkService := service.NewDrinkService(db, menuCache, metricsRecorder, logger)

	if *seed {
		inserted, err := drinkService.Seed(ctx)
		if err != nil {
			logger.Error("failed to seed menu", "error", err)
			closeAll(db, cacheClient)
			os.Exit(1)
		}
		logger.Info("seed finished", "inserted", inserted)
	}

	// Setup router
	r := handler.NewRouter(handler.RouterConfig{
		Drinks:  handler.NewDrinkHandler(drinkService, logger),
		Health:  handler.NewHealthHandler(db, driver, cacheHealth),
		Metrics: handler.NewMetricsHandler(metricsRecorder),
		Permissions: middleware.PermissionConfig{
			Authorizer: gate,
			Logger:     logger,
			Metrics:    metricsRecorder,
		},
		Security:    middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		Logger:      logger,
		MaxBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("store", func(context.Context) error {
		db.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"issuer", cfg.IssuerURL(),
		"audience", cfg.APIAudience,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore connects to the store named by DATABASE_URL and applies
// migrations when enabled.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, string, error) {
	driver, source, err := cfg.StoreDriver()
	if err != nil {
		return nil, "", err
	}

	switch driver {
	case config.DriverSQLite:
		repo, err := repository.OpenSQLite(ctx, source)
		if err != nil {
			return nil, "", err
		}
		if cfg.RunMigrations {
			if err := migrate.Run(ctx, repo.DB(), migrate.SQLite, logger); err != nil {
				repo.Close()
				return nil, "", err
			}
		}
		return repo, driver, nil
	default:
		if cfg.RunMigrations {
			if err := migrate.RunPostgres(ctx, source, logger); err != nil {
				return nil, "", err
			}
		}
		repo, err := repository.New(ctx, source)
		if err != nil {
			return nil, "", err
		}
		return repo, driver, nil
	}
}

func closeAll(db store, cacheClient *cache.Cache) {
	db.Close()
	if cacheClient != nil {
		_ = cacheClient.Close()
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
