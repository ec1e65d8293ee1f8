package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// RunPostgres opens a short-lived database/sql connection to databaseURL
// and applies the Postgres migrations.
func RunPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return Run(ctx, db, Postgres, logger)
}
