package migration

import (
	"errors"
	"fmt"

	"contract-announcer/migrations"
	"contract-announcer/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Runner applies the embedded schema migrations to a database URL.
type Runner struct {
	m   *migrate.Migrate
	log *logger.Logger
}

// New prepares a runner for the postgres:// databaseURL.
func New(databaseURL string, log *logger.Logger) (*Runner, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &Runner{m: m, log: log}, nil
}

// Up applies every pending migration. Having nothing to apply is not an error.
func (r *Runner) Up() error {
	before, _, _ := r.Version()
	if err := r.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	after, dirty, err := r.Version()
	if err != nil {
		return err
	}
	if after != before {
		r.log.Info("Applied schema migrations",
			logger.IntField("from_version", int(before)),
			logger.IntField("to_version", int(after)),
			logger.Field("dirty", dirty))
	} else {
		r.log.Info("Schema is up to date", logger.IntField("version", int(after)))
	}
	return nil
}

// Down reverts the last applied migration. Reverting drops ledger data, so it is only reachable
// from the migrate command.
func (r *Runner) Down() error {
	before, _, _ := r.Version()
	if err := r.m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	after, _, _ := r.Version()
	r.log.Warn("Reverted schema migration",
		logger.IntField("from_version", int(before)),
		logger.IntField("to_version", int(after)))
	return nil
}

// Version returns the current schema version; zero when nothing has been applied.
func (r *Runner) Version() (uint, bool, error) {
	v, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the source and database handles.
func (r *Runner) Close() {
	srcErr, dbErr := r.m.Close()
	if srcErr != nil {
		r.log.Warn("Migration source error on close", logger.ErrorField(srcErr))
	}
	if dbErr != nil {
		r.log.Warn("Migration database error on close", logger.ErrorField(dbErr))
	}
}
