package scope

import "github.com/google/uuid"

// Registry is the single source of truth for which connection declared
// which identity, plus the inverse index and coarse room memberships.
// All mutation of that state goes through these operations.
type Registry interface {
	// --- Connection Lifecycle ---
	Register(t Transport, claims Claims) (*Connection, error)
	Deregister(connID uuid.UUID) error
	Get(connID uuid.UUID) (*Connection, bool)

	// Claim records a single-valued identity after the handshake. A
	// duplicate claim for the already-held value is a no-op success;
	// a differing value fails with ErrScopeConflict.
	Claim(connID uuid.UUID, kind IdentityKind, value string) error

	// --- Room Membership ---
	JoinRoom(connID uuid.UUID, room RoomKey) error
	LeaveRoom(connID uuid.UUID, room RoomKey) error
	RoomMembers(room RoomKey) []*Connection

	// --- Enumeration ---
	Connections() []*Connection
	// Match returns every connection the descriptor selects. The scan
	// and the attribute reads happen atomically with respect to
	// concurrent claims.
	Match(desc Descriptor) []*Connection
	Len() int

	// --- Per-User Accounting (connection limiter support) ---
	UserConnectionCount(userID string) int
	OldestUserConnection(userID string) (*Connection, bool)
}
