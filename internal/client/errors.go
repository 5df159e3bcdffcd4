package client

import (
	"errors"
	"fmt"

	"github.com/amongo/amongo/internal/hazel"
)

var (
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
	ErrNotJoined        = errors.New("not joined to a game")
	ErrNotReady         = errors.New("player has not spawned")
)

// JoinError is the server refusing a join. It is not retried.
type JoinError struct {
	Reason  hazel.DisconnectReason
	Message string
}

func (e *JoinError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("join refused: %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("join refused: %s", e.Reason)
}

func stateError(op string, err error, s State) error {
	return fmt.Errorf("%s: %w (state %s)", op, err, s)
}
