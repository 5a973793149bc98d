package postgres

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// migrateLogger adapts zerolog to migrate.Logger.
type migrateLogger struct {
	logger zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Info().Msgf(format, v...)
}

func (l migrateLogger) Verbose() bool { return l.logger.GetLevel() <= zerolog.DebugLevel }

// resolveMigrationFolder accepts paths relative to the working directory.
func resolveMigrationFolder(folder string) (string, error) {
	if _, err := os.Stat(folder); err == nil {
		return filepath.Abs(folder)
	}
	wd, _ := os.Getwd()
	p := filepath.Join(wd, folder)
	if _, err := os.Stat(p); err != nil {
		return "", errors.Wrap(err, fmt.Sprintf("migration folder %s does not exist", folder))
	}
	return p, nil
}

// Migrate applies every pending up migration from folder.
func Migrate(db *sqlx.DB, folder string, logger zerolog.Logger) error {
	dir, err := resolveMigrationFolder(folder)
	if err != nil {
		return err
	}
	driver, err := pgmigrate.WithInstance(db.DB, &pgmigrate.Config{})
	if err != nil {
		return errors.Wrap(err, "migrate driver")
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "create migrate instance")
	}
	m.Log = migrateLogger{logger: logger}

	start := time.Now()
	err = m.Up()
	switch {
	case err == nil:
		logger.Info().Dur("elapsed", time.Since(start)).Msg("migrations applied")
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info().Msg("no new migrations to apply")
		err = nil
	default:
		version, dirty, _ := m.Version()
		logger.Error().Err(err).Uint("version", version).Bool("dirty", dirty).Msg("migration failed")
	}
	return err
}
