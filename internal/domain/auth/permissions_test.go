package auth

import "testing"

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		if _, ok := seen[perm]; ok {
			t.Fatalf("duplicate permission %s", perm)
		}
		seen[perm] = struct{}{}
	}
}

func TestRoleSlicesDoNotAlias(t *testing.T) {
	if len(RolePermissions[RoleEmployee]) != len(employeeBase) {
		t.Fatalf("employee permissions mutated: %d vs %d", len(RolePermissions[RoleEmployee]), len(employeeBase))
	}
	for _, perm := range RolePermissions[RoleEmployee] {
		if perm == PermLeaveApprove || perm == PermPayrollManage {
			t.Fatalf("employee role must not hold %s", perm)
		}
	}
}

func TestValidRoleAndPrivileged(t *testing.T) {
	if !ValidRole(RoleManager) || ValidRole("owner") {
		t.Fatal("unexpected role validity")
	}
	if !IsPrivileged(RoleHR) || IsPrivileged(RoleManager) {
		t.Fatal("unexpected privilege classification")
	}
}
