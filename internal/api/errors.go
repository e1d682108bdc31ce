package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/psrio/pkg/psrfits"
)

var (
	ErrNotFound   = errors.New("observation not found")
	ErrUnreadable = errors.New("observation file unreadable")
)

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

var ErrInvalidRequest = errors.New("invalid_request")

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// statusOf maps library errors to an HTTP status and error type.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found_error"
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, psrfits.ErrIndex),
		errors.Is(err, psrfits.ErrShape):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, ErrUnreadable),
		errors.Is(err, psrfits.ErrNotPSRFITS),
		errors.Is(err, psrfits.ErrNoData),
		errors.Is(err, psrfits.ErrMissingKeyword),
		errors.Is(err, psrfits.ErrShortTable),
		errors.Is(err, psrfits.ErrDimensions):
		return http.StatusUnprocessableEntity, "unprocessable_observation"
	case errors.Is(err, psrfits.ErrNoScales):
		return http.StatusConflict, "scales_not_loaded"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
