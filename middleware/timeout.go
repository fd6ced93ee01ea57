package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulb-elastic/synthetics/journey"
)

// Timeout returns middleware that enforces a per-step execution
// deadline. When d is zero the middleware is a pass-through. When the
// deadline is exceeded the step context is cancelled and the step
// function should return context.DeadlineExceeded.
func Timeout(d time.Duration, logger *slog.Logger) Middleware {
	return func(ctx context.Context, s *journey.Step, next Handler) error {
		if d > 0 {
			logger.Debug("step timeout set",
				slog.String("step_id", s.ID.String()),
				slog.Duration("timeout", d),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
