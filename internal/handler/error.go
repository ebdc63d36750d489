// Package handler holds the HTTP error rendering and request validation
// shared by the API handlers.
package handler

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/middleware"
)

// ErrorBody is the JSON envelope written for every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure. Fields is only set for validation errors.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID, domain.EOUTOFSTOCK, domain.EDUPLICATE, domain.EALREADYVERIFIED:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EFORBIDDEN:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	case domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// codeForStatus is the reverse mapping, used for errors raised by echo itself.
func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return domain.EUNAUTHORIZED
	case http.StatusForbidden:
		return domain.EFORBIDDEN
	case http.StatusNotFound:
		return domain.ENOTFOUND
	case http.StatusConflict:
		return domain.ECONFLICT
	case http.StatusTooManyRequests:
		return domain.ERATELIMIT
	}
	if status >= 500 {
		return domain.EINTERNAL
	}
	return domain.EINVALID
}

// ErrorHandler returns the echo error handler for the API. With
// exposeInternal set, internal errors carry their underlying message.
func ErrorHandler(logger zerolog.Logger, exposeInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		log := middleware.GetLogger(c.Request().Context(), &logger)
		if werr := writeError(c, err, exposeInternal, log); werr != nil {
			log.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

// ErrorResponse logs err and writes it as an ErrorBody.
func ErrorResponse(c echo.Context, err error, exposeInternal bool) error {
	return writeError(c, err, exposeInternal, middleware.GetLogger(c.Request().Context()))
}

func writeError(c echo.Context, err error, exposeInternal bool, logger *zerolog.Logger) error {
	status, detail := describe(err)

	if detail.Code == domain.EINTERNAL && exposeInternal {
		detail.Message = err.Error()
	}

	event := logger.Debug()
	if status >= 500 {
		event = logger.Error()
	}
	event.Err(err).
		Str("code", detail.Code).
		Str("op", domain.ErrorOp(err)).
		Int("status", status).
		Msg("request failed")

	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	return c.JSON(status, ErrorBody{Error: detail})
}

func describe(err error) (int, ErrorDetail) {
	var (
		he   *echo.HTTPError
		verr validator.ValidationErrors
	)
	if errors.As(err, &verr) {
		err = fieldErrors(verr)
	}

	if fields := domain.GetValidationFields(err); fields != nil {
		return http.StatusBadRequest, ErrorDetail{
			Code:    domain.EINVALID,
			Message: summarize(fields),
			Fields:  fields,
		}
	}

	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			message = s
		}
		code := codeForStatus(he.Code)
		if code == domain.EINTERNAL {
			message = domain.ErrorMessage(domain.Internal(err, "", message))
		}
		return he.Code, ErrorDetail{Code: code, Message: message}
	}

	code := domain.ErrorCode(err)
	return ErrorCodeToHTTPStatus(code), ErrorDetail{Code: code, Message: domain.ErrorMessage(err)}
}

// summarize picks the message for a validation failure: the field's own
// message when only one field failed.
func summarize(fields map[string]string) string {
	if len(fields) == 1 {
		for _, msg := range fields {
			return msg
		}
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return "Validation failed: " + strings.Join(names, ", ")
}
