package access

import "testing"

func TestIsStaff(t *testing.T) {
	t.Parallel()

	policy := Policy{
		StaffRoles: []string{"role-support", "role-mod"},
		OwnerID:    "owner-1",
		CoOwnerID:  "coowner-1",
	}

	cases := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"admin without roles", Actor{ID: "u1", Admin: true}, true},
		{"owner id", Actor{ID: "owner-1"}, true},
		{"coowner id", Actor{ID: "coowner-1"}, true},
		{"staff role holder", Actor{ID: "u2", RoleIDs: []string{"other", "role-mod"}}, true},
		{"plain member", Actor{ID: "u3", RoleIDs: []string{"other"}}, false},
		{"no roles at all", Actor{ID: "u4"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.IsStaff(tc.actor); got != tc.want {
				t.Errorf("IsStaff(%+v) = %v, want %v", tc.actor, got, tc.want)
			}
		})
	}
}

func TestIsStaffEmptyPolicy(t *testing.T) {
	t.Parallel()

	// With nothing configured only admins count as staff.
	var policy Policy
	if policy.IsStaff(Actor{ID: "u1"}) {
		t.Error("plain member counted as staff under empty policy")
	}
	if !policy.IsStaff(Actor{ID: "u1", Admin: true}) {
		t.Error("admin not counted as staff under empty policy")
	}

	// An empty actor id must not match the empty owner ids.
	if policy.IsStaff(Actor{}) {
		t.Error("zero-value actor counted as staff")
	}
}

func TestIsOwnerOrCoOwner(t *testing.T) {
	t.Parallel()

	policy := Policy{
		StaffRoles: []string{"role-support"},
		OwnerID:    "owner-1",
	}

	if !policy.IsOwnerOrCoOwner(Actor{ID: "owner-1"}) {
		t.Error("owner not recognized")
	}
	if !policy.IsOwnerOrCoOwner(Actor{ID: "u1", Admin: true}) {
		t.Error("admin not recognized for owner-level ops")
	}
	// Staff role alone does not grant owner-level operations.
	if policy.IsOwnerOrCoOwner(Actor{ID: "u2", RoleIDs: []string{"role-support"}}) {
		t.Error("staff role holder passed an owner-level check")
	}
}
