// Package rbac resolves role capabilities. Every mutation in the
// workflow service goes through this single predicate instead of
// re-deriving permission sets at call sites.
package rbac

import (
	"log"

	"gorm.io/gorm"
)

// Resolver answers whether a role holds a named capability. It is
// read-only, has no state beyond the store handle and is safe for
// concurrent use.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a resolver bound to a store handle
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// HasPermission reports whether roleName holds capability. Unknown
// roles and query failures resolve to false: authorization fails
// closed, never with an error.
func (r *Resolver) HasPermission(roleName, capability string) bool {
	var count int64
	err := r.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("roles.name = ? AND permissions.name = ?", roleName, capability).
		Count(&count).Error
	if err != nil {
		log.Printf("⚠️  Permission lookup failed for role %q: %v", roleName, err)
		return false
	}
	return count > 0
}

// HasAnyPermission reports whether roleName holds at least one of the
// given capabilities.
func (r *Resolver) HasAnyPermission(roleName string, capabilities ...string) bool {
	if len(capabilities) == 0 {
		return false
	}
	var count int64
	err := r.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Where("roles.name = ? AND permissions.name IN ?", roleName, capabilities).
		Count(&count).Error
	if err != nil {
		log.Printf("⚠️  Permission lookup failed for role %q: %v", roleName, err)
		return false
	}
	return count > 0
}
