package registry

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors, check with errors.Is.
var (
	// ErrNotFound is returned when a device id has no record.
	ErrNotFound = errors.New("device not found")

	// ErrForbidden is returned when the caller may not change the device.
	ErrForbidden = errors.New("forbidden")
)

// Error ties a domain error to the device it was raised for.
type Error struct {
	Err      error
	DeviceID uint64
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: device %d", e.Err, e.DeviceID)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the response code of the error: 404 or 403.
func (e *Error) Status() int32 {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(e.Err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func notFound(id uint64) error {
	return &Error{Err: ErrNotFound, DeviceID: id}
}

func forbidden(id uint64) error {
	return &Error{Err: ErrForbidden, DeviceID: id}
}
