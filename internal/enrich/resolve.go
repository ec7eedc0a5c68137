// Package enrich resolves optional run assets (thumbnail image, track
// titles) through a two-tier strategy: a preferred generated tier and a
// fast local fallback tier substituted on any primary failure. The run
// never fails because a primary tier failed; only a missing
// fallback-of-last-resort is fatal.
package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"mixdown/internal/logging"
	"mixdown/internal/services"
)

// Tier names which strategy produced a resolved value. Recorded in run
// metadata.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
)

// Resolve invokes primary and, on any failure, substitutes secondary. The
// primary is never retried. A secondary failure means the last resort is
// unavailable and is escalated as a permanent error.
func Resolve[T any](
	ctx context.Context,
	logger *slog.Logger,
	name string,
	primary func(context.Context) (T, error),
	secondary func(context.Context) (T, error),
) (T, Tier, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	value, err := primary(ctx)
	if err == nil {
		logger.Info("resolved", logging.String("asset", name), logging.String("tier", string(TierPrimary)))
		return value, TierPrimary, nil
	}
	if ctx.Err() != nil {
		var zero T
		return zero, "", ctx.Err()
	}

	logger.Warn("primary tier failed, using fallback",
		logging.String("asset", name),
		logging.Error(err),
	)

	value, fallbackErr := secondary(ctx)
	if fallbackErr != nil {
		var zero T
		return zero, "", services.Wrap(services.ErrPermanent, "enriching", name,
			fmt.Sprintf("fallback of last resort unavailable (primary: %v)", err), fallbackErr)
	}
	logger.Info("resolved", logging.String("asset", name), logging.String("tier", string(TierSecondary)))
	return value, TierSecondary, nil
}
