package scope

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// IdentityKind names one of the single-valued identity attributes a
// connection may declare.
type IdentityKind string

const (
	IdentityUser    IdentityKind = "user"
	IdentityBranch  IdentityKind = "branch"
	IdentityCompany IdentityKind = "company"
	IdentityRole    IdentityKind = "role"
)

// Kinds lists every identity dimension the registry indexes.
var Kinds = []IdentityKind{IdentityUser, IdentityBranch, IdentityCompany, IdentityRole}

// Transport is the minimal surface the registry needs from a live
// connection. *transport.Connection satisfies it; tests use stubs.
type Transport interface {
	ID() uuid.UUID
	Send(msg []byte)
	Close(err error)
}

// Claims carries the identity a client declares during the handshake.
// Absent fields are left unset on the connection; no placeholder values
// are invented for them.
type Claims struct {
	UserID    string
	BranchID  string
	CompanyID string
	Role      string
	Features  []string
}

// Normalized returns a copy with the role lower-cased and the feature
// set lower-cased, trimmed and deduplicated.
func (c Claims) Normalized() Claims {
	out := c
	out.Role = strings.ToLower(strings.TrimSpace(c.Role))
	out.Features = lo.Uniq(lo.FilterMap(c.Features, func(f string, _ int) (string, bool) {
		f = strings.ToLower(strings.TrimSpace(f))
		return f, f != ""
	}))
	return out
}

// Connection is the registry's record of one live transport session and
// the identity it declared. Identity fields are set at registration or
// through Registry.Claim and never mutated elsewhere.
type Connection struct {
	ID        uuid.UUID
	Transport Transport

	UserID    string
	BranchID  string
	CompanyID string
	Role      string
	Features  map[string]struct{}

	ConnectedAt time.Time
}

// Identity returns the connection's value for a single-valued
// identity dimension, or "" if it was never declared.
func (c *Connection) Identity(kind IdentityKind) string {
	switch kind {
	case IdentityUser:
		return c.UserID
	case IdentityBranch:
		return c.BranchID
	case IdentityCompany:
		return c.CompanyID
	case IdentityRole:
		return c.Role
	}
	return ""
}

// HasFeature reports whether the connection declared the given feature
// entitlement. The lookup is case-insensitive.
func (c *Connection) HasFeature(feature string) bool {
	_, ok := c.Features[strings.ToLower(feature)]
	return ok
}
