package actions

import (
	"fmt"
	"io"

	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/migrations"
	"github.com/sirupsen/logrus"
)

// Teardown reverts the result store migrations, dropping every stored run.
func Teardown(log logrus.FieldLogger, cfg *config.AppConfig, w io.Writer) error {
	if err := migrations.Down(log, cfg.Store); err != nil {
		return fmt.Errorf("tearing down result store: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Dropped result tables in %s.\n", cfg.Store.ClickhouseDatabase)

	return nil
}
