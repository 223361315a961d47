package actions

import (
	"fmt"
	"io"

	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/migrations"
)

// ShowConfig displays the current configuration. With the result store
// enabled it also reports the applied schema version.
func ShowConfig(w io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, _ = fmt.Fprint(w, cfg.String())

	if !cfg.Store.Enabled {
		return nil
	}

	version, dirty, err := migrations.Status(cfg.Store)
	if err != nil {
		_, _ = fmt.Fprintf(w, "  %-20s (unavailable: %v)\n", "Schema version:", err)
		return nil
	}

	_, _ = fmt.Fprintf(w, "  %-20s %d (dirty: %t)\n", "Schema version:", version, dirty)

	return nil
}
