package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"atelier/internal/config"
	"atelier/internal/middleware"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationsTable tracks applied schema versions.
const MigrationsTable = "schema_migrations"

// migrateLogger adapts golang-migrate's logger to slog.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	middleware.Logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrateLogger) Verbose() bool { return false }

// MigrationURL builds the pgx5:// URL golang-migrate connects with.
func MigrationURL(cfg *config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme: "pgx5",
		User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:   cfg.DBHost + ":" + cfg.DBPort,
		Path:   "/" + cfg.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("x-migrations-table", MigrationsTable)
	u.RawQuery = q.Encode()
	return u.String()
}

func newMigrator(cfg *config.Config) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		middleware.Logger.Warn("Failed to close migrator",
			slog.Any("source_error", srcErr), slog.Any("database_error", dbErr))
	}
}

// RunMigrations applies all pending migrations.
func RunMigrations(cfg *config.Config) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			middleware.Logger.Debug("Schema already up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, _, _ := m.Version()
	middleware.Logger.Info("Migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}

// RollbackMigrations reverts the most recent steps migrations.
func RollbackMigrations(cfg *config.Config, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("rollback %d migrations: %w", steps, err)
	}
	middleware.Logger.Info("Migrations rolled back", slog.Int("steps", steps))
	return nil
}

// MigrationVersion reports the applied version; zero with no error means none applied.
func MigrationVersion(cfg *config.Config) (version uint, dirty bool, err error) {
	m, err := newMigrator(cfg)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrator(m)

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// AvailableMigrations lists the embedded up-migration file names in order.
func AvailableMigrations() ([]string, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
