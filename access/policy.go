// Package access decides whether an actor may perform staff- or owner-level
// operations. The policy is a pure function of the actor's role snapshot and
// the configuration at call time; nothing is cached, so role changes take
// effect on the next check.
package access

// Actor is an identity as seen at the moment of a single check.
type Actor struct {
	ID          string
	DisplayName string
	RoleIDs     []string
	// Admin is set when the platform reports an administrative capability
	// grant for this actor.
	Admin bool
}

// Policy carries the configured staff and ownership identifiers.
type Policy struct {
	StaffRoles []string
	OwnerID    string
	CoOwnerID  string
}

func (p Policy) IsAdmin(a Actor) bool {
	return a.Admin
}

// IsStaff reports whether the actor may perform staff-level operations:
// admins, holders of a configured staff role, and the owner/co-owner ids.
func (p Policy) IsStaff(a Actor) bool {
	if a.Admin {
		return true
	}
	if p.isOwnerID(a.ID) {
		return true
	}
	for _, rid := range a.RoleIDs {
		for _, staff := range p.StaffRoles {
			if rid == staff {
				return true
			}
		}
	}
	return false
}

func (p Policy) IsOwnerOrCoOwner(a Actor) bool {
	return a.Admin || p.isOwnerID(a.ID)
}

func (p Policy) isOwnerID(id string) bool {
	if id == "" {
		return false
	}
	return id == p.OwnerID || id == p.CoOwnerID
}
