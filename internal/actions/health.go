package actions

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ethpandaops/protobench/internal/backend"
	"github.com/ethpandaops/protobench/internal/config"
	"github.com/ethpandaops/protobench/internal/harness"
	"github.com/ethpandaops/protobench/internal/output"
	"github.com/sirupsen/logrus"
)

// ErrUnhealthy is returned when at least one probed backend failed.
var ErrUnhealthy = errors.New("one or more backends are unhealthy")

// Health probes ids, or every configured backend when ids is empty, and
// prints one row per backend.
func Health(ctx context.Context, log logrus.FieldLogger, cfg *config.AppConfig, ids []backend.ID, w io.Writer) (map[backend.ID]error, error) {
	h := harness.New(&harness.Config{
		Logger:       log,
		Endpoints:    cfg.Endpoints(),
		ProbeTimeout: cfg.Run.CallTimeout,
	})

	if err := h.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting harness: %w", err)
	}
	defer func() { _ = h.Stop() }()

	health, err := h.Probe(ctx, ids)
	if err != nil {
		return nil, err
	}

	output.NewFormatter(w, false).PrintHealth(health)

	for _, probeErr := range health {
		if probeErr != nil {
			return health, ErrUnhealthy
		}
	}

	return health, nil
}
