package signaling

import (
	"errors"
	"fmt"
)

var (
	ErrCodeInUse         = errors.New("room code already in use")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrPeerExists        = errors.New("peer id already in room")
	ErrNotInRoom         = errors.New("connection is not in a room")
	ErrAlreadyInRoom     = errors.New("connection is already in a room")
	ErrTargetUnavailable = errors.New("target peer not found or disconnected")
	ErrInvalidMessage    = errors.New("invalid message format")
	ErrMissingField      = errors.New("missing required field")
	ErrUnknownType       = errors.New("unknown message type")
)

// RelayError annotates a relay failure with the operation that hit it.
type RelayError struct {
	Op      string
	Err     error
	Details string
}

func (e *RelayError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *RelayError {
	return &RelayError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *RelayError {
	return &RelayError{Op: op, Err: err, Details: details}
}

// ErrorText maps a relay error to the text sent to the client in an
// "error" message. Missing-field and unknown-type errors carry their
// client text in Details.
func ErrorText(err error) string {
	var relayErr *RelayError
	switch {
	case errors.Is(err, ErrCodeInUse):
		return "Room already exists"
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrPeerExists):
		return "Peer ID already in room"
	case errors.Is(err, ErrNotInRoom):
		return "Not in a room"
	case errors.Is(err, ErrAlreadyInRoom):
		return "Already in a room"
	case errors.Is(err, ErrTargetUnavailable):
		return "Target peer not found or disconnected"
	case errors.Is(err, ErrInvalidMessage):
		return "Invalid message format"
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrUnknownType):
		if errors.As(err, &relayErr) && relayErr.Details != "" {
			return relayErr.Details
		}
		if errors.Is(err, ErrUnknownType) {
			return "Unknown message type"
		}
		return "Missing required field"
	}
	return "Internal error"
}
