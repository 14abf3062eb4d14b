package scope

import (
	"strings"

	"github.com/samber/lo"
)

// Descriptor selects the audience for one scoped notification. Every
// dimension that is set must pass for a connection to qualify; unset
// dimensions are skipped. Within Features a single overlap is enough.
type Descriptor struct {
	CompanyID string
	BranchID  string
	Roles     []string
	UserIDs   []string
	Features  []string
}

// Matches reports whether the connection's declared attributes satisfy
// the descriptor. Pure function of its two inputs; recipients form a
// set, so there is no ordering or tie-breaking to apply.
func (d Descriptor) Matches(c *Connection) bool {
	if d.CompanyID != "" && c.CompanyID != d.CompanyID {
		return false
	}
	if d.BranchID != "" && c.BranchID != d.BranchID {
		return false
	}
	if len(d.Roles) > 0 {
		ok := lo.ContainsBy(d.Roles, func(r string) bool {
			return strings.ToLower(r) == c.Role
		})
		if !ok {
			return false
		}
	}
	if len(d.UserIDs) > 0 && !lo.Contains(d.UserIDs, c.UserID) {
		return false
	}
	if len(d.Features) > 0 {
		ok := lo.ContainsBy(d.Features, c.HasFeature)
		if !ok {
			return false
		}
	}
	return true
}

// Zero reports whether the descriptor constrains nothing, which would
// select every connection. Callers that consider that a mistake can
// check before emitting.
func (d Descriptor) Zero() bool {
	return d.CompanyID == "" && d.BranchID == "" &&
		len(d.Roles) == 0 && len(d.UserIDs) == 0 && len(d.Features) == 0
}
