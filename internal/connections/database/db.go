package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cafeteria-storefront/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

func PostgresDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)
}

// ConnectDB opens the postgres pool, retrying while the server comes up.
func ConnectDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	return connect(ctx, DriverPgx, PostgresDSN(cfg), 10)
}

// OpenSQLite opens (creating when missing) the sqlite file at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := connect(ctx, DriverSQLite, path, 1)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection keeps :memory: a single database
	db.SetMaxOpenConns(1)
	return db, nil
}

func connect(ctx context.Context, driver, dsn string, maxRetries int) (*sql.DB, error) {
	const (
		retryDelay = 2 * time.Second
		pingTTL    = 5 * time.Second
	)

	var db *sql.DB
	var err error

	for i := 1; i <= maxRetries; i++ {
		db, err = sql.Open(driver, dsn)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, pingTTL)
			err = db.PingContext(pctx)
			cancel()
			if err == nil {
				return db, nil
			}
			_ = db.Close()
		}

		if i == maxRetries {
			break
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s connect canceled: %w", driver, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%s unreachable after %d attempts: %w", driver, maxRetries, err)
}
