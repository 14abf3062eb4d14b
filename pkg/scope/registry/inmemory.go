package registry

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Saymandev/advanced-poss-gateway/pkg/scope"
	"github.com/google/uuid"
)

// InMemoryRegistry keeps every map in process memory. A single RWMutex
// guards all of them: register, claim and deregister each touch the
// connection table, the identity index and the room table together, and
// must be atomic with respect to a concurrent scoped-emit scan.
type InMemoryRegistry struct {
	mu sync.RWMutex

	conns map[uuid.UUID]*scope.Connection
	// index[kind][value] is the set of connections whose identity for
	// kind equals value. An entry exists iff the set is non-empty.
	index map[scope.IdentityKind]map[string]map[uuid.UUID]struct{}
	// rooms and memberships mirror each other: rooms answers "who is in
	// this room", memberships answers "which rooms does this connection
	// hold" so disconnect cleanup never scans every room.
	rooms       map[scope.RoomKey]map[uuid.UUID]struct{}
	memberships map[uuid.UUID]map[scope.RoomKey]struct{}

	logger *slog.Logger
}

func NewInMemoryRegistry(logger *slog.Logger) *InMemoryRegistry {
	idx := make(map[scope.IdentityKind]map[string]map[uuid.UUID]struct{}, len(scope.Kinds))
	for _, kind := range scope.Kinds {
		idx[kind] = make(map[string]map[uuid.UUID]struct{})
	}
	return &InMemoryRegistry{
		conns:       make(map[uuid.UUID]*scope.Connection),
		index:       idx,
		rooms:       make(map[scope.RoomKey]map[uuid.UUID]struct{}),
		memberships: make(map[uuid.UUID]map[scope.RoomKey]struct{}),
		logger:      logger.With(slog.String("component", "scope_registry")),
	}
}

// compile-time check to ensure InMemoryRegistry implements Registry.
var _ scope.Registry = (*InMemoryRegistry)(nil)

func (r *InMemoryRegistry) Register(t scope.Transport, claims scope.Claims) (*scope.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := t.ID()
	if existing, ok := r.conns[connID]; ok {
		// registration is idempotent
		return existing, nil
	}

	claims = claims.Normalized()
	conn := &scope.Connection{
		ID:          connID,
		Transport:   t,
		Features:    make(map[string]struct{}, len(claims.Features)),
		ConnectedAt: time.Now(),
	}
	for _, f := range claims.Features {
		conn.Features[f] = struct{}{}
	}
	r.conns[connID] = conn

	for kind, value := range map[scope.IdentityKind]string{
		scope.IdentityUser:    claims.UserID,
		scope.IdentityBranch:  claims.BranchID,
		scope.IdentityCompany: claims.CompanyID,
		scope.IdentityRole:    claims.Role,
	} {
		if value != "" {
			r.claimLocked(conn, kind, value)
		}
	}

	r.logger.Debug("connection registered",
		slog.String("connID", connID.String()),
		slog.String("userID", conn.UserID),
		slog.String("branchID", conn.BranchID),
	)
	return conn, nil
}

func (r *InMemoryRegistry) Deregister(connID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		// already cleaned up; deregistration is idempotent
		return nil
	}
	delete(r.conns, connID)

	for _, kind := range scope.Kinds {
		if value := conn.Identity(kind); value != "" {
			r.dropIndexLocked(kind, value, connID)
		}
	}
	for room := range r.memberships[connID] {
		r.leaveRoomLocked(connID, room)
	}
	delete(r.memberships, connID)

	r.logger.Debug("connection deregistered", slog.String("connID", connID.String()))
	return nil
}

func (r *InMemoryRegistry) Get(connID uuid.UUID) (*scope.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connID]
	return conn, ok
}

func (r *InMemoryRegistry) Claim(connID uuid.UUID, kind scope.IdentityKind, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return scope.ErrUnknownConnection
	}
	value = normalizeIdentity(kind, value)
	if value == "" {
		return scope.ErrEmptyIdentity
	}

	if held := conn.Identity(kind); held != "" {
		if held == value {
			return nil
		}
		r.logger.Warn("rejected conflicting identity claim",
			slog.String("connID", connID.String()),
			slog.String("kind", string(kind)),
			slog.String("held", held),
			slog.String("claimed", value),
		)
		return scope.ErrScopeConflict
	}

	r.claimLocked(conn, kind, value)
	return nil
}

// claimLocked records an identity value on a connection that did not
// hold one for kind yet: sets the field, adds the inverse-index entry
// and joins the matching coarse room.
func (r *InMemoryRegistry) claimLocked(conn *scope.Connection, kind scope.IdentityKind, value string) {
	value = normalizeIdentity(kind, value)
	switch kind {
	case scope.IdentityUser:
		conn.UserID = value
	case scope.IdentityBranch:
		conn.BranchID = value
	case scope.IdentityCompany:
		conn.CompanyID = value
	case scope.IdentityRole:
		conn.Role = value
	}

	byValue, ok := r.index[kind][value]
	if !ok {
		byValue = make(map[uuid.UUID]struct{})
		r.index[kind][value] = byValue
	}
	byValue[conn.ID] = struct{}{}

	r.joinRoomLocked(conn.ID, scope.IdentityRoom(kind, value))
}

// Identity values are free-form strings; only roles are folded to
// lower case so role rooms and role matching are case-insensitive.
func normalizeIdentity(kind scope.IdentityKind, value string) string {
	value = strings.TrimSpace(value)
	if kind == scope.IdentityRole {
		value = strings.ToLower(value)
	}
	return value
}

func (r *InMemoryRegistry) dropIndexLocked(kind scope.IdentityKind, value string, connID uuid.UUID) {
	byValue, ok := r.index[kind][value]
	if !ok {
		return
	}
	delete(byValue, connID)
	if len(byValue) == 0 {
		delete(r.index[kind], value)
	}
}

// --- Room Membership ---

func (r *InMemoryRegistry) JoinRoom(connID uuid.UUID, room scope.RoomKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		return scope.ErrUnknownConnection
	}
	r.joinRoomLocked(connID, room)
	return nil
}

func (r *InMemoryRegistry) LeaveRoom(connID uuid.UUID, room scope.RoomKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveRoomLocked(connID, room)
	if members, ok := r.memberships[connID]; ok {
		delete(members, room)
	}
	return nil
}

func (r *InMemoryRegistry) joinRoomLocked(connID uuid.UUID, room scope.RoomKey) {
	occupants, ok := r.rooms[room]
	if !ok {
		occupants = make(map[uuid.UUID]struct{})
		r.rooms[room] = occupants
	}
	occupants[connID] = struct{}{}

	members, ok := r.memberships[connID]
	if !ok {
		members = make(map[scope.RoomKey]struct{})
		r.memberships[connID] = members
	}
	members[room] = struct{}{}
}

func (r *InMemoryRegistry) leaveRoomLocked(connID uuid.UUID, room scope.RoomKey) {
	occupants, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(occupants, connID)
	if len(occupants) == 0 {
		delete(r.rooms, room)
	}
}

func (r *InMemoryRegistry) RoomMembers(room scope.RoomKey) []*scope.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	occupants, ok := r.rooms[room]
	if !ok {
		return nil
	}
	members := make([]*scope.Connection, 0, len(occupants))
	for connID := range occupants {
		if conn, ok := r.conns[connID]; ok {
			members = append(members, conn)
		}
	}
	return members
}

// --- Enumeration ---

func (r *InMemoryRegistry) Connections() []*scope.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*scope.Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Match runs the scope matcher over every live connection while holding
// the read lock, so a concurrent claim cannot race the attribute reads.
// Linear in the number of connections.
func (r *InMemoryRegistry) Match(desc scope.Descriptor) []*scope.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*scope.Connection
	for _, conn := range r.conns {
		if desc.Matches(conn) {
			matched = append(matched, conn)
		}
	}
	return matched
}

func (r *InMemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// --- Per-User Accounting ---

func (r *InMemoryRegistry) UserConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index[scope.IdentityUser][userID])
}

func (r *InMemoryRegistry) OldestUserConnection(userID string) (*scope.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var oldest *scope.Connection
	for connID := range r.index[scope.IdentityUser][userID] {
		conn, ok := r.conns[connID]
		if !ok {
			continue
		}
		if oldest == nil || conn.ConnectedAt.Before(oldest.ConnectedAt) {
			oldest = conn
		}
	}
	return oldest, oldest != nil
}
