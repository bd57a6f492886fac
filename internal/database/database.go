// Package database opens the storage engine's backing connection — SQLite
// or Postgres, chosen by DATABASE_URL's scheme — and runs the one-time
// migration that creates the emails/mailboxes/webhooks/users tables plus,
// on SQLite, the emails_fts shadow table and its sync triggers.
package database

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection pool configuration, applied to the Postgres path only —
// SQLite is single-file and does not benefit from a pool.
const (
	DefaultMaxIdleConns    = 10
	DefaultMaxOpenConns    = 100
	DefaultConnMaxLifetime = time.Hour
	DefaultConnMaxIdleTime = 10 * time.Minute
)

// Connect opens db's dialect from its URL scheme: "sqlite:path" (the
// default) or a postgres:// / postgresql:// DSN.
func Connect(databaseURL string) (*gorm.DB, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return connectPostgres(databaseURL)
	}
	return connectSQLite(databaseURL)
}

func connectSQLite(databaseURL string) (*gorm.DB, error) {
	path := strings.TrimPrefix(databaseURL, "sqlite:")
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		return nil, fmt.Errorf("config_invalid: empty sqlite path in DATABASE_URL %q", databaseURL)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("storage_fatal: failed to open sqlite database %q: %w", path, err)
	}

	// SQLite serializes writers internally; a single connection avoids
	// "database is locked" under concurrent ingestion.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage_fatal: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	slog.Info("connected to sqlite database", slog.String("path", path))
	return db, nil
}

func connectPostgres(databaseURL string) (*gorm.DB, error) {
	if os.Getenv("APP_ENV") == "production" {
		if strings.Contains(databaseURL, "sslmode=disable") {
			return nil, fmt.Errorf("config_invalid: SSL mode cannot be disabled in production")
		}
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("storage_fatal: failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage_fatal: %w", err)
	}
	sqlDB.SetMaxIdleConns(DefaultMaxIdleConns)
	sqlDB.SetMaxOpenConns(DefaultMaxOpenConns)
	sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	slog.Info("connected to postgres database")
	return db, nil
}

// Migrate creates the emails/mailboxes/webhooks/users tables and, for
// SQLite, the emails_fts full-text shadow table with triggers that keep
// it synchronously consistent with emails — the storage-engine invariant
// that every stored email has exactly one index entry and every delete
// leaves none.
func Migrate(db *gorm.DB) error {
	slog.Info("running database migrations")

	if err := db.AutoMigrate(
		&models.Email{},
		&models.Mailbox{},
		&models.Webhook{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("storage_fatal: failed to run migrations: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		if err := migrateSQLiteFTS(db); err != nil {
			return err
		}
	}

	slog.Info("database migrations completed")
	return nil
}

func migrateSQLiteFTS(db *gorm.DB) error {
	var count int64
	db.Raw(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'emails_fts'`).Scan(&count)
	if count > 0 {
		return nil
	}

	statements := []string{
		`CREATE VIRTUAL TABLE emails_fts USING fts5(
			id UNINDEXED, to_address, from_address, subject, body
		)`,
		`INSERT INTO emails_fts(id, to_address, from_address, subject, body)
			SELECT id, to_address, from_address, subject, body FROM emails`,
		`CREATE TRIGGER emails_fts_insert AFTER INSERT ON emails BEGIN
			INSERT INTO emails_fts(id, to_address, from_address, subject, body)
			VALUES (new.id, new.to_address, new.from_address, new.subject, new.body);
		END`,
		`CREATE TRIGGER emails_fts_delete AFTER DELETE ON emails BEGIN
			DELETE FROM emails_fts WHERE id = old.id;
		END`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("storage_fatal: failed to create FTS shadow table: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
