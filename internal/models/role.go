package models

import "time"

// Seed role names. Additional roles can be created at runtime via the
// admin API; these three always exist.
const (
	RoleAdministrator = "administrator"
	RoleLabManager    = "lab_manager"
	RoleResearcher    = "researcher"
)

// Capability names checked through the permission resolver. Flat
// namespace, no hierarchy.
const (
	PermManageUsers         = "manage_users"
	PermManageSamples       = "manage_samples"
	PermManageTests         = "manage_tests"
	PermManageInventory     = "manage_inventory"
	PermRequestTests        = "request_tests"
	PermEnterTestResults    = "enter_test_results"
	PermValidateTestResults = "validate_test_results"
	PermApproveTestResults  = "approve_test_results"
	PermLogCustody          = "log_custody"
)

// Role is a named collection of permissions assigned to users.
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string       `gorm:"size:255" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // system roles cannot be deleted
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Role model
func (Role) TableName() string {
	return "roles"
}

// Permission is a named capability a role may hold.
type Permission struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Permission model
func (Permission) TableName() string {
	return "permissions"
}
