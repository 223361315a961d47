// Package clickhouse opens ClickHouse connections for the result store.
package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ethpandaops/protobench/internal/config"
)

// ErrInvalidDatabaseName is returned for names that cannot be used unquoted.
var ErrInvalidDatabaseName = errors.New("invalid database name")

var databaseName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options builds native protocol options for database.
func Options(opts config.StoreOptions, database string) *clickhouse.Options {
	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.ClickhouseHost, opts.ClickhouseNativePort)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: opts.ClickhouseUsername,
			Password: opts.ClickhousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    2,
		MaxIdleConns:    2,
		ConnMaxLifetime: 10 * time.Minute,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}
}

// Open connects to database and pings it.
func Open(ctx context.Context, opts config.StoreOptions, database string) (*sql.DB, error) {
	db := clickhouse.OpenDB(Options(opts, database))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return db, nil
}

// CreateDatabase creates a database if it doesn't exist
func CreateDatabase(ctx context.Context, db *sql.DB, name string) error {
	if !databaseName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseName, name)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	return nil
}

// ValidDatabaseName reports whether name can be used as a database name.
func ValidDatabaseName(name string) bool {
	return databaseName.MatchString(name)
}
