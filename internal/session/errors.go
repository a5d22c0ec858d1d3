package session

import "errors"

var (
	// ErrUnknownConnection is returned for operations on a connection id
	// that was never registered or has already been unregistered.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrAlreadyAnnounced is returned when a connection announces a second,
	// different user identity. The transport should close the connection.
	ErrAlreadyAnnounced = errors.New("connection already announced")

	// ErrNotAMember rejects a dispatch from a user who is not a durable
	// member of the target room. No side effects occur.
	ErrNotAMember = errors.New("sender is not a member of the room")
)

// PersistenceError wraps a store failure during dispatch. The message was
// not broadcast; nothing is visible anywhere.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist message: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
