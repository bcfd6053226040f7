// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not a
// participant of the chat they are acting on, while
// ErrInvalidTransition signals that a negotiation guard failed and
// the requested state change was rejected without side effects.
package repository

import "errors"

// ErrNotFound is returned when a referenced listing, chat or
// message does not exist. Handlers should translate this into an
// HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a chat or listing they are not a participant or owner of.
// Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when a negotiation action
// violates a state-machine guard, such as approving before both
// sides locked in or selecting a trader on a SOLD listing. The
// action leaves all state unchanged. Handlers should translate
// this into an HTTP 422 response.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrConflict is returned when an optimistic-concurrency check
// failed repeatedly and the operation gave up. The caller should
// re-fetch state before retrying. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrUnavailable is returned when the store could not be reached
// after bounded retries. Handlers should translate this into an
// HTTP 503 response.
var ErrUnavailable = errors.New("unavailable")
