package presence

import "errors"

var (
	// ErrVisitorNotFound is returned by SendInvite for an unknown visitor id.
	// No state changes when it is returned.
	ErrVisitorNotFound = errors.New("presence: visitor not found")

	// ErrNotPersisted is returned when the snapshot write failed. The
	// in-memory map may already reflect the mutation; callers should retry.
	ErrNotPersisted = errors.New("presence: state not persisted")

	// ErrBadCommand is returned for a command envelope that is rejected
	// before any mutation: unknown type, missing visitor id, missing URL.
	ErrBadCommand = errors.New("presence: invalid command")
)
