package db

import (
	"slices"
	"testing"

	"hrms/internal/domain/auth"
)

func TestDefaultGrantsFlattensSorted(t *testing.T) {
	roles, grantRoles, grantPerms, err := defaultGrants(
		[]string{"a.read", "a.write", "b.read"},
		map[string][]string{
			"writer": {"a.read", "a.write"},
			"reader": {"b.read"},
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(roles, []string{"reader", "writer"}) {
		t.Fatalf("unexpected roles %v", roles)
	}
	if !slices.Equal(grantRoles, []string{"reader", "writer", "writer"}) {
		t.Fatalf("unexpected grant roles %v", grantRoles)
	}
	if !slices.Equal(grantPerms, []string{"b.read", "a.read", "a.write"}) {
		t.Fatalf("unexpected grant perms %v", grantPerms)
	}
}

func TestDefaultGrantsRejectsUnknownPermission(t *testing.T) {
	_, _, _, err := defaultGrants([]string{"a.read"}, map[string][]string{"reader": {"a.read", "payroll.run"}})
	if err == nil {
		t.Fatal("expected unknown permission to be rejected")
	}
}

func TestBuiltInRoleTableIsConsistent(t *testing.T) {
	roles, grantRoles, grantPerms, err := defaultGrants(auth.DefaultPermissions, auth.RolePermissions)
	if err != nil {
		t.Fatalf("built-in grants: %v", err)
	}
	for _, role := range []string{auth.RoleEmployee, auth.RoleManager, auth.RoleHR, auth.RoleSystemAdmin} {
		if !slices.Contains(roles, role) {
			t.Fatalf("missing role %s", role)
		}
	}
	if len(grantRoles) != len(grantPerms) {
		t.Fatalf("grant arrays differ: %d vs %d", len(grantRoles), len(grantPerms))
	}
}
