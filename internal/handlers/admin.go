package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openlims/limsgo/internal/models"
)

// --- Roles & permissions ---

func (r *Router) listRoles(w http.ResponseWriter, req *http.Request) {
	var roles []models.Role
	if err := r.db.Preload("Permissions").Order("name").Find(&roles).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch roles")
		return
	}
	respondJSON(w, http.StatusOK, roles)
}

func (r *Router) listPermissions(w http.ResponseWriter, req *http.Request) {
	var perms []models.Permission
	if err := r.db.Order("name").Find(&perms).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch permissions")
		return
	}
	respondJSON(w, http.StatusOK, perms)
}

// RolePayload creates or updates a role with an exact permission set
type RolePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (r *Router) createRole(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageUsers) {
		return
	}

	var body RolePayload
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Name == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	var perms []models.Permission
	if len(body.Permissions) > 0 {
		if err := r.db.Where("name IN ?", body.Permissions).Find(&perms).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to resolve permissions")
			return
		}
		if len(perms) != len(body.Permissions) {
			respondError(w, http.StatusBadRequest, "One or more permissions do not exist")
			return
		}
	}

	role := models.Role{
		Name:        body.Name,
		Description: body.Description,
		Permissions: perms,
	}
	if err := r.db.Create(&role).Error; err != nil {
		respondError(w, http.StatusConflict, "Role already exists")
		return
	}
	respondJSON(w, http.StatusCreated, role)
}

func (r *Router) updateRole(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageUsers) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid role ID")
		return
	}

	var role models.Role
	if err := r.db.First(&role, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Role not found")
		return
	}

	var body RolePayload
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if body.Description != "" {
		role.Description = body.Description
	}
	if err := r.db.Save(&role).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update role")
		return
	}

	if body.Permissions != nil {
		var perms []models.Permission
		if err := r.db.Where("name IN ?", body.Permissions).Find(&perms).Error; err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to resolve permissions")
			return
		}
		if len(perms) != len(body.Permissions) {
			respondError(w, http.StatusBadRequest, "One or more permissions do not exist")
			return
		}
		if err := r.db.Model(&role).Association("Permissions").Replace(perms); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to assign permissions")
			return
		}
		role.Permissions = perms
	}

	respondJSON(w, http.StatusOK, role)
}

func (r *Router) deleteRole(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageUsers) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid role ID")
		return
	}

	var role models.Role
	if err := r.db.First(&role, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Role not found")
		return
	}
	if role.IsSystem {
		respondError(w, http.StatusConflict, "System roles cannot be deleted")
		return
	}

	var refs int64
	r.db.Model(&models.UserAuth{}).Where("role = ?", role.Name).Count(&refs)
	if refs > 0 {
		respondError(w, http.StatusConflict, "Role is still assigned to users")
		return
	}

	if err := r.db.Select("Permissions").Delete(&role).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete role")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Role deleted"})
}

// --- Users ---

func (r *Router) listUsers(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageUsers) {
		return
	}
	var users []models.UserAuth
	if err := r.db.Order("username").Find(&users).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// AssignRoleRequest sets a user's role by name
type AssignRoleRequest struct {
	Role string `json:"role"`
}

func (r *Router) assignUserRole(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageUsers) {
		return
	}

	userID := mux.Vars(req)["id"]
	var body AssignRoleRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Role == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	var role models.Role
	if err := r.db.Where("name = ?", body.Role).First(&role).Error; err != nil {
		respondError(w, http.StatusNotFound, "Role not found")
		return
	}

	var user models.UserAuth
	if err := r.db.First(&user, "id = ?", userID).Error; err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	user.Role = role.Name
	if err := r.db.Save(&user).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to assign role")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
