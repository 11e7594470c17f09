package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable covers transport failures: DNS, refused connections, timeouts.
	ErrUnreachable = errors.New("inference service unreachable")
	// ErrServerRejected covers non-2xx responses and bodies that cannot be understood.
	ErrServerRejected = errors.New("inference service rejected the request")
)

// ServerError is returned when a service answers with a non-2xx status.
type ServerError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("%s: %s returned HTTP %d", ErrServerRejected, e.URL, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ServerError) Unwrap() error {
	return ErrServerRejected
}
