// Package router builds the echo engine shared by every route group.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/dukerupert/basket/internal/handler"
)

// Options configures the engine.
type Options struct {
	// Logger is used when a request carries no request-scoped logger.
	Logger zerolog.Logger

	// ExposeErrors returns the underlying message of internal errors to
	// clients. Enable only in development.
	ExposeErrors bool
}

// New creates an echo engine with the API error handler and request
// validator installed. Global middleware runs in the order given.
func New(opts Options, middleware ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(opts.Logger, opts.ExposeErrors)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware...)

	return e
}
