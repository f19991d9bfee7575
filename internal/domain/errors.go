package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTransport    = errors.New("transport error")
	ErrService      = errors.New("service error")
)

// ServiceError is returned when a remote endpoint was reached but rejected
// the request or answered with something unusable.
type ServiceError struct {
	Service string
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status = %d): %s", ErrService, e.Service, e.Status, e.Message)
	}

	return fmt.Sprintf("%s: %s: %s", ErrService, e.Service, e.Message)
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}

func InvalidInput(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
}

func Transport(service string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, service, err)
}

// IsTransportFailure reports whether err comes from the network layer
// (connection failure, DNS, timeout) rather than from a response.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}

// Describe renders err as a short message for the shell.
func Describe(err error) string {
	var serviceErr *ServiceError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "Missing input: " + err.Error()
	case errors.Is(err, ErrTransport):
		return "Could not reach the service, check the connection and try again: " + err.Error()
	case errors.As(err, &serviceErr):
		if serviceErr.Status != 0 {
			return fmt.Sprintf("%s rejected the request (%d): %s", serviceErr.Service, serviceErr.Status, serviceErr.Message)
		}

		return fmt.Sprintf("%s rejected the request: %s", serviceErr.Service, serviceErr.Message)
	default:
		return err.Error()
	}
}
