package handler // handler defines http handlers

import (
	"errors"  // errors provides sentinel comparison via errors.Is
	"net/http" // HTTP status codes
	"strconv" // strconv converts path parameters to numeric types
	"strings" // strings provides trimming helpers

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository" // repository holds the error taxonomy
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// The JWT middleware stores the raw `sub` claim, whose concrete type depends
// on how the token was decoded, so every plausible representation is handled.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("user_id missing or invalid in context")
}

// pathID parses the :id path parameter as a positive uint64.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// domainError maps the store/engine error taxonomy onto HTTP responses.
// Handlers call this for any error coming out of the negotiation engine
// so that status codes stay consistent across endpoints:
//
//	ErrNotFound          → 404
//	ErrForbidden         → 403
//	ErrInvalidTransition → 422
//	ErrConflict          → 409
//	ErrUnavailable       → 503
//
// Anything else is an internal error.
func domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid transition"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict, retry"})
	case errors.Is(err, repository.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
