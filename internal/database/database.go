package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // Required by the library implementation.
)

// Database is the local journal of generated and published posts.
type Database struct {
	db  *sql.DB
	log *slog.Logger
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

func New(ctx context.Context, dbPath string, log *slog.Logger) (*Database, error) {
	dbFile, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	applied, err := migrateJournal(dbFile)
	if err != nil {
		return nil, errors.Join(err, dbFile.Close())
	}

	if applied {
		log.InfoContext(ctx, "Journal schema is upgraded",
			"journalPath", dbPath,
			"schemaVersion", schemaVersion(ctx, dbFile, log))
	} else {
		log.DebugContext(ctx, "Journal schema is current",
			"journalPath", dbPath)
	}

	return &Database{db: dbFile, log: log}, nil
}

// migrateJournal brings the posts schema up to the embedded migrations and
// reports whether anything was applied.
func migrateJournal(dbFile *sql.DB) (bool, error) {
	driver, err := sqlite3.WithInstance(dbFile, &sqlite3.Config{})
	if err != nil {
		return false, fmt.Errorf("wrap journal for migrations: %w", err)
	}

	migrations, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return false, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", migrations, "sqlite3", driver)
	if err != nil {
		return false, fmt.Errorf("prepare journal migrations: %w", err)
	}

	switch err = m.Up(); {
	case err == nil:
		return true, nil
	case errors.Is(err, migrate.ErrNoChange):
		return false, nil
	default:
		return false, fmt.Errorf("upgrade journal schema: %w", err)
	}
}

func schemaVersion(ctx context.Context, dbFile *sql.DB, log *slog.Logger) int64 {
	var version int64

	err := dbFile.QueryRowContext(ctx, "select version from schema_migrations limit 1").Scan(&version)
	if err != nil {
		log.WarnContext(ctx, "Failed to read journal schema version",
			"error", err)
	}

	return version
}

func (d *Database) Close() error {
	return d.db.Close()
}
