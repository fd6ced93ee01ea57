package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/paulb-elastic/synthetics/journey"
)

// Recover returns middleware that recovers from panics in the step
// function. Panics are converted to errors and logged with a stack
// trace, so a panicking step fails its journey instead of crashing the
// whole run.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, s *journey.Step, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("step panicked",
					slog.String("step_name", s.Name),
					slog.String("step_id", s.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in step %s: %v", s.Name, r)
			}
		}()
		return next(ctx)
	}
}
