package rbac

import (
	"testing"

	"github.com/openlims/limsgo/internal/models"
)

func TestEveryPermissionHasDescription(t *testing.T) {
	for _, perms := range rolePermissionSets {
		for _, p := range perms {
			if _, ok := permissionDescriptions[p]; !ok {
				t.Errorf("permission %q has no description", p)
			}
		}
	}
}

func TestAdministratorHoldsEveryPermission(t *testing.T) {
	admin := make(map[string]bool)
	for _, p := range rolePermissionSets[models.RoleAdministrator] {
		admin[p] = true
	}
	for p := range permissionDescriptions {
		if !admin[p] {
			t.Errorf("administrator is missing permission %q", p)
		}
	}
}

func TestLabManagerCannotManageUsers(t *testing.T) {
	for _, p := range rolePermissionSets[models.RoleLabManager] {
		if p == models.PermManageUsers {
			t.Fatal("lab_manager must not hold manage_users")
		}
	}
}

func TestResearcherPermissionSet(t *testing.T) {
	want := map[string]bool{
		models.PermManageSamples:    true,
		models.PermRequestTests:     true,
		models.PermEnterTestResults: true,
		models.PermLogCustody:       true,
	}

	got := rolePermissionSets[models.RoleResearcher]
	if len(got) != len(want) {
		t.Fatalf("researcher has %d permissions, want %d", len(got), len(want))
	}
	for _, p := range got {
		if !want[p] {
			t.Errorf("researcher should not hold %q", p)
		}
	}
	for _, forbidden := range []string{
		models.PermManageUsers,
		models.PermValidateTestResults,
		models.PermApproveTestResults,
	} {
		for _, p := range got {
			if p == forbidden {
				t.Errorf("researcher must not hold %q", forbidden)
			}
		}
	}
}
