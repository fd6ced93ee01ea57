package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulb-elastic/synthetics/journey"
)

// Logging returns middleware that logs step start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, s *journey.Step, next Handler) error {
		logger.Info("step started",
			slog.String("step_name", s.Name),
			slog.String("step_id", s.ID.String()),
			slog.Int("step_index", s.Index),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("step failed",
				slog.String("step_name", s.Name),
				slog.String("step_id", s.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("step completed",
				slog.String("step_name", s.Name),
				slog.String("step_id", s.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
