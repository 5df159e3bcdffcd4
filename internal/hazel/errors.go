package hazel

import (
	"errors"
	"fmt"
)

var (
	// ErrAckTimeout is returned when a reliable send ran out of resends.
	ErrAckTimeout = errors.New("no acknowledgement received")

	// ErrClosed is returned by operations on a connection closed locally.
	ErrClosed = errors.New("connection closed")
)

// NetworkError wraps a socket failure. The connection is unusable
// afterwards; reconnecting is the only recovery.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("hazel %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteDisconnectError reports that the server ended the connection.
type RemoteDisconnectError struct {
	Reason DisconnectReason
}

func (e *RemoteDisconnectError) Error() string {
	return fmt.Sprintf("disconnected by remote: %s", e.Reason)
}
