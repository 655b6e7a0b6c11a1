package manager

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// TransportError means the remote service was never reached: DNS failure,
// connection reset, deadline exceeded.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteServiceError means the remote service answered with a non-success status.
type RemoteServiceError struct {
	Service    string
	StatusCode int
	StatusText string
	Reason     string
}

func (e *RemoteServiceError) Error() string {
	msg := fmt.Sprintf("remote service error: %s: %d %s", e.Service, e.StatusCode, e.StatusText)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// DecodeError means the response body did not have the expected shape.
type DecodeError struct {
	Service string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s: %v", e.Service, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ContractViolation is an internal invariant failure detected before any
// output or request was produced.
type ContractViolation struct {
	Reason string
}

func (e *ContractViolation) Error() string {
	return "contract violation: " + e.Reason
}
