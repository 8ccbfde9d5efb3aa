package rbac

import (
	"fmt"

	"github.com/openlims/limsgo/internal/models"
	"gorm.io/gorm"
)

var permissionDescriptions = map[string]string{
	models.PermManageUsers:         "Create, edit and deactivate user accounts and roles",
	models.PermManageSamples:       "Register samples and change sample status/location",
	models.PermManageTests:         "Administer test definitions and test runs, including deletion",
	models.PermManageInventory:     "Edit reagents, suppliers and purchase orders, adjust stock",
	models.PermRequestTests:        "Request test runs against samples",
	models.PermEnterTestResults:    "Enter results and complete test runs",
	models.PermValidateTestResults: "Validate completed test runs",
	models.PermApproveTestResults:  "Approve validated test runs",
	models.PermLogCustody:          "Append manual chain-of-custody entries",
}

var rolePermissionSets = map[string][]string{
	models.RoleAdministrator: {
		models.PermManageUsers,
		models.PermManageSamples,
		models.PermManageTests,
		models.PermManageInventory,
		models.PermRequestTests,
		models.PermEnterTestResults,
		models.PermValidateTestResults,
		models.PermApproveTestResults,
		models.PermLogCustody,
	},
	models.RoleLabManager: {
		models.PermManageSamples,
		models.PermManageTests,
		models.PermManageInventory,
		models.PermRequestTests,
		models.PermEnterTestResults,
		models.PermValidateTestResults,
		models.PermApproveTestResults,
		models.PermLogCustody,
	},
	models.RoleResearcher: {
		models.PermManageSamples,
		models.PermRequestTests,
		models.PermEnterTestResults,
		models.PermLogCustody,
	},
}

// SeedBaseline ensures the built-in permissions and the three seed
// roles exist with their exact permission sets. Safe to run at every
// startup; custom roles created at runtime are left alone.
func SeedBaseline(db *gorm.DB) error {
	perms := make(map[string]models.Permission, len(permissionDescriptions))
	for name, desc := range permissionDescriptions {
		p := models.Permission{Name: name}
		if err := db.Where("name = ?", name).
			Assign(models.Permission{Description: desc}).
			FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", name, err)
		}
		perms[name] = p
	}

	for roleName, permNames := range rolePermissionSets {
		role := models.Role{Name: roleName}
		if err := db.Where("name = ?", roleName).
			Assign(models.Role{IsSystem: true}).
			FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", roleName, err)
		}

		assigned := make([]models.Permission, 0, len(permNames))
		for _, name := range permNames {
			assigned = append(assigned, perms[name])
		}
		if err := db.Model(&role).Association("Permissions").Replace(assigned); err != nil {
			return fmt.Errorf("assign permissions to %s: %w", roleName, err)
		}
	}

	return nil
}
