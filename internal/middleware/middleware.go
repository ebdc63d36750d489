// Package middleware holds the echo middleware shared by every API route:
// request ids, request-scoped logging, bearer authentication, rate limiting,
// metrics and response hardening.
//
// Middleware never writes error bodies itself. Failures are returned as
// domain errors and rendered by the echo HTTPErrorHandler in package handler.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/dukerupert/basket/internal/domain"
)

// Recover turns handler panics into internal errors and logs the stack.
func Recover() echo.MiddlewareFunc {
	return echomw.RecoverWithConfig(echomw.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			GetLogger(c.Request().Context()).Error().
				Err(err).
				Bytes("stack", stack).
				Msg("panic recovered")
			return domain.Internal(err, "", "An unexpected error occurred")
		},
	})
}

// commitError renders err through the echo error handler so that outer
// middleware observe the final status code.
func commitError(c echo.Context, err error) {
	if err != nil && !c.Response().Committed {
		c.Error(err)
	}
}

// statusOf returns the status that will be reported for a request.
func statusOf(c echo.Context) int {
	if status := c.Response().Status; status != 0 {
		return status
	}
	return http.StatusOK
}

// levelFor picks a log level from the response status.
func levelFor(status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
