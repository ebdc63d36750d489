package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// WithRequestLogger injects a request-scoped logger into the context and
// logs one line per completed request.
// The logger carries request_id, method, path and client ip. It must run
// after RequestID; Authenticate adds user_id once the caller is known.
func WithRequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			fields := base.With().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("ip", c.RealIP())
			if requestID := GetRequestID(req.Context()); requestID != "" {
				fields = fields.Str("request_id", requestID)
			}
			logger := fields.Logger()

			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))

			err := next(c)
			commitError(c, err)

			status := statusOf(c)
			GetLogger(c.Request().Context()).WithLevel(levelFor(status)).
				Int("status", status).
				Int64("bytes", c.Response().Size).
				Dur("latency", time.Since(start)).
				Msg("request completed")
			return nil
		}
	}
}

// GetLogger retrieves the request-scoped logger from the context.
// Without one it returns zerolog's disabled logger, or the fallback if given.
func GetLogger(ctx context.Context, fallback ...*zerolog.Logger) *zerolog.Logger {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled && len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}
	return logger
}

// withUserID adds user_id to the request-scoped logger.
func withUserID(ctx context.Context, userID string) context.Context {
	logger := zerolog.Ctx(ctx).With().Str("user_id", userID).Logger()
	return logger.WithContext(ctx)
}
