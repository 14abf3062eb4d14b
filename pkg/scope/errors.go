package scope

import "errors"

var (
	// ErrScopeConflict is returned when a join request declares an
	// identity that contradicts the one set at the handshake.
	ErrScopeConflict = errors.New("identity conflicts with the one declared at handshake")

	// ErrUnknownConnection is returned for operations on a connection
	// id the registry has never seen or has already cleaned up.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrEmptyIdentity is returned when a claim carries no value.
	ErrEmptyIdentity = errors.New("identity value must not be empty")
)
