package orders

import (
	"context"

	"github.com/kailasramasamy/martly-backend/pkg/logger"
)

// besteffort runs a side call whose failure must never affect the main flow.
// The error is swallowed and logged at warn.
func besteffort(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) {
	err := fn(ctx)
	if err == nil || logg == nil {
		return
	}
	logg.Warn(logg.WithFields(ctx, map[string]any{
		"side_call": name,
		"cause":     err.Error(),
	}), "best-effort side call failed")
}
