package probe

import (
	"errors"
	"fmt"
)

var (
	ErrSignaling   = errors.New("signaling server error")
	ErrTimeout     = errors.New("timeout")
	ErrPeerLeft    = errors.New("peer left")
	ErrDataChannel = errors.New("data channel failed")
)

// Error records which step of the probe failed and for which peer.
type Error struct {
	Op      string
	Peer    string
	Err     error
	Details string
}

func (e *Error) Error() string {
	prefix := e.Op
	if e.Peer != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Peer)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", prefix, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op, peer string, err error) *Error {
	return &Error{Op: op, Peer: peer, Err: err}
}

func WrapError(op, peer string, err error, details string) *Error {
	return &Error{Op: op, Peer: peer, Err: err, Details: details}
}
