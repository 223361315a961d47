package actions

import (
	"context"
	"fmt"
	"io"

	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/store"
	"github.com/sirupsen/logrus"
)

// Setup creates the result store database and applies its migrations. It is
// safe to run repeatedly.
func Setup(ctx context.Context, log logrus.FieldLogger, cfg *config.AppConfig, w io.Writer) error {
	opts := cfg.Store

	_, _ = fmt.Fprintf(w, "ClickHouse Host: %s:%d\n", opts.ClickhouseHost, opts.ClickhouseNativePort)
	_, _ = fmt.Fprintf(w, "Username:        %s\n", opts.ClickhouseUsername)
	_, _ = fmt.Fprintf(w, "Database Name:   %s\n", opts.ClickhouseDatabase)

	s := store.NewClickHouse(log, opts)
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("setting up result store: %w", err)
	}

	if err := s.Stop(); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(w, "Result store is ready.")

	return nil
}
