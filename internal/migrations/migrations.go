// Package migrations applies the result store schema.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/ethpandaops/protobench/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse" // clickhouse driver for migrations
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var files embed.FS

// Up applies every pending migration to the store database.
func Up(log logrus.FieldLogger, opts config.StoreOptions) error {
	log = log.WithField("component", "migrations")

	m, err := newMigrate(opts)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.WithFields(logrus.Fields{"source": srcErr, "database": dbErr}).Warn("closing migrate instance")
		}
	}()

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		log.Debug("schema already current")
		return nil
	case err != nil:
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("migrations applied")

	return nil
}

// Down reverts every applied migration, dropping the result tables.
func Down(log logrus.FieldLogger, opts config.StoreOptions) error {
	log = log.WithField("component", "migrations")

	m, err := newMigrate(opts)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("reverting migrations: %w", err)
	}

	log.Info("migrations reverted")

	return nil
}

// Status returns the current migration version and dirty state.
func Status(opts config.StoreOptions) (version uint, dirty bool, err error) {
	m, err := newMigrate(opts)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading schema version: %w", err)
	}

	return version, dirty, nil
}

func newMigrate(opts config.StoreOptions) (*migrate.Migrate, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, ConnectionString(opts))
	if err != nil {
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}

	return m, nil
}

// ConnectionString builds the ClickHouse URL golang-migrate expects.
func ConnectionString(opts config.StoreOptions) string {
	q := url.Values{}
	q.Set("username", opts.ClickhouseUsername)
	q.Set("database", opts.ClickhouseDatabase)
	q.Set("x-multi-statement", "true")
	q.Set("x-migrations-table", config.SchemaMigrationsTable)
	q.Set("x-migrations-table-engine", "MergeTree")

	if opts.ClickhousePassword != "" {
		q.Set("password", opts.ClickhousePassword)
	}

	return fmt.Sprintf("clickhouse://%s:%d?%s", opts.ClickhouseHost, opts.ClickhouseNativePort, q.Encode())
}

// Names lists the embedded migration files.
func Names() ([]string, error) {
	entries, err := files.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("listing embedded migrations: %w", err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}

	return out, nil
}
