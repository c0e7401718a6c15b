package database

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "net/url"
    "time"

    "github.com/golang-migrate/migrate/v4"
    "github.com/golang-migrate/migrate/v4/database/postgres"
    _ "github.com/golang-migrate/migrate/v4/source/file"
    "github.com/jmoiron/sqlx"
    _ "github.com/lib/pq" // PostgreSQL driver

    appconfig "github.com/GTDGit/gtd_catalog/internal/config"
)

// MigrationsSource is where the documents table migrations are read from.
const MigrationsSource = "file://migrations"

// ErrDocumentsTableMissing means the connection works but the JSONB documents
// table the catalog stores everything in has not been created.
var ErrDocumentsTableMissing = errors.New("documents table is missing")

const (
    maxAttempts = 5
    baseDelay   = 500 * time.Millisecond
)

// DSN builds the lib/pq connection string for cfg.
func DSN(cfg *appconfig.DatabaseConfig) string {
    return fmt.Sprintf(
        "postgres://%s:%s@%s:%s/%s?sslmode=%s",
        url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
    )
}

// OpenDocumentStore connects to PostgreSQL, applies the migrations and checks
// that the documents table is in place. The pool is closed on any failure.
func OpenDocumentStore(ctx context.Context, cfg *appconfig.DatabaseConfig) (*sqlx.DB, error) {
    db, err := Connect(ctx, cfg)
    if err != nil {
        return nil, err
    }
    if err := Migrate(db.DB, MigrationsSource); err != nil {
        _ = db.Close()
        return nil, err
    }
    if err := CheckDocumentsTable(ctx, db); err != nil {
        _ = db.Close()
        return nil, err
    }
    return db, nil
}

// Connect opens a pool and pings it, retrying with exponential backoff while
// the database comes up. It gives up early when ctx is cancelled.
func Connect(ctx context.Context, cfg *appconfig.DatabaseConfig) (*sqlx.DB, error) {
    if cfg == nil {
        return nil, errors.New("nil database config")
    }
    dsn := DSN(cfg)

    var lastErr error
    for attempt := 1; attempt <= maxAttempts; attempt++ {
        var db *sqlx.DB
        db, lastErr = sqlx.Open("postgres", dsn)
        if lastErr == nil {
            setPool(db.DB)

            pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
            lastErr = db.PingContext(pingCtx)
            cancel()
            if lastErr == nil {
                return db, nil
            }
            _ = db.Close()
        }

        if attempt == maxAttempts {
            break
        }
        if err := sleepWithBackoff(ctx, attempt, baseDelay); err != nil {
            return nil, err
        }
    }

    return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, lastErr)
}

// Migrate applies every pending up migration from source.
func Migrate(db *sql.DB, source string) error {
    driver, err := postgres.WithInstance(db, &postgres.Config{})
    if err != nil {
        return fmt.Errorf("could not create migration driver: %w", err)
    }

    m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
    if err != nil {
        return fmt.Errorf("could not create migration instance: %w", err)
    }

    if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
        return fmt.Errorf("could not run migrations: %w", err)
    }
    return nil
}

// CheckDocumentsTable fails with ErrDocumentsTableMissing when the documents
// table cannot be resolved in the current search path.
func CheckDocumentsTable(ctx context.Context, db *sqlx.DB) error {
    var exists bool
    if err := db.GetContext(ctx, &exists, `SELECT to_regclass('documents') IS NOT NULL`); err != nil {
        return fmt.Errorf("check documents table: %w", err)
    }
    if !exists {
        return ErrDocumentsTableMissing
    }
    return nil
}

func setPool(db *sql.DB) {
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(5)
    db.SetConnMaxLifetime(5 * time.Minute)
}

// backoff is base * 2^(attempt-1), capped to 5s.
func backoff(attempt int, base time.Duration) time.Duration {
    d := base << (attempt - 1)
    if d > 5*time.Second {
        d = 5 * time.Second
    }
    return d
}

func sleepWithBackoff(ctx context.Context, attempt int, base time.Duration) error {
    t := time.NewTimer(backoff(attempt, base))
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
