// Package api implements the JSON handlers mounted under /api.
//
// Handlers bind and validate requests, call a domain service and write the
// result. Errors are returned to echo and rendered by handler.ErrorHandler.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dukerupert/basket/internal/domain"
)

// envelope is the {"success": true, ...} wrapper used by the order, payment
// and product endpoints.
type envelope map[string]any

func success(c echo.Context, status int, body envelope) error {
	if body == nil {
		body = envelope{}
	}
	body["success"] = true
	return c.JSON(status, body)
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

var errInvalidID = &domain.Error{Code: domain.EINVALID, Message: "Invalid id"}

// pathID parses a uuid path parameter.
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// queryInt parses an integer query parameter, returning 0 when it is absent
// or malformed.
func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	if err != nil {
		return 0
	}
	return n
}

// maxQuantity bounds parsed quantities so oversized values still fail the
// stock check instead of wrapping around.
const maxQuantity = math.MaxInt32

// quantity accepts a JSON number or a numeric string. Fractions are
// truncated and magnitudes above maxQuantity are clamped. NaN is treated as
// absent.
type quantity struct {
	value int
	ok    bool
}

func (q *quantity) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		q.set(v)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			q.set(n)
		} else if errors.Is(err, strconv.ErrRange) {
			q.set(n) // ±Inf
		}
	}
	return nil
}

func (q *quantity) set(f float64) {
	switch {
	case math.IsNaN(f):
		return
	case f > maxQuantity:
		f = maxQuantity
	case f < -maxQuantity:
		f = -maxQuantity
	}
	q.value, q.ok = int(f), true
}

// Int returns the parsed quantity and whether one was supplied.
func (q quantity) Int() (int, bool) {
	return q.value, q.ok
}
