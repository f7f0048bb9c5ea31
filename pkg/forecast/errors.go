package forecast

import (
	"errors"
	"fmt"
)

var (
	ErrConnection = errors.New("data store unreachable")
	ErrEndpoint   = errors.New("forecast endpoint call failed")
	ErrDecode     = errors.New("forecast endpoint reply could not be decoded")
	ErrDataShape  = errors.New("forecast series length does not match prediction length")
	ErrValidation = errors.New("invalid forecast parameters")
)

// EndpointError is returned by endpoint clients when the remote service answers
// with a non-success status or cannot be reached.
type EndpointError struct {
	Endpoint string
	// StatusCode is the HTTP status reported by the service, 0 when unknown.
	StatusCode int
	Message    string
	Err        error
}

func (e *EndpointError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("endpoint %s: status %d: %s", e.Endpoint, e.StatusCode, msg)
	}
	return fmt.Sprintf("endpoint %s: %s", e.Endpoint, msg)
}

func (e *EndpointError) Unwrap() error { return e.Err }

// Is reports ErrEndpoint so callers can match on the category.
func (e *EndpointError) Is(target error) bool { return target == ErrEndpoint }
