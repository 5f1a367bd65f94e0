package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/models"
	"taskmarket/internal/services"
)

type RoleHandler struct {
	service services.RoleService
}

func NewRoleHandler(service services.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// GET /roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		writeError(c, "role", "list", err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// POST /roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req models.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, err := h.service.CreateRole(c.Request.Context(), req)
	if err != nil {
		writeError(c, "role", "create", err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

// GET /roles/permissions
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.service.ListPermissions(c.Request.Context())
	if err != nil {
		writeError(c, "role", "listPermissions", err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// POST /roles/permissions
func (h *RoleHandler) CreatePermission(c *gin.Context) {
	var req models.CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.service.CreatePermission(c.Request.Context(), req)
	if err != nil {
		writeError(c, "role", "createPermission", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /roles/:id/grants
func (h *RoleHandler) ListGrants(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	grants, err := h.service.RoleGrants(c.Request.Context(), id)
	if err != nil {
		writeError(c, "role", "grants", err)
		return
	}
	out := make([]gin.H, 0, len(grants))
	for _, g := range grants {
		out = append(out, gin.H{"permission_key": g.PermissionKey, "mode": g.Mode, "allow": g.Allow})
	}
	c.JSON(http.StatusOK, out)
}

// POST /roles/:id/grants
func (h *RoleHandler) Grant(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.GrantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rp, err := h.service.Grant(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, "role", "grant", err)
		return
	}
	c.JSON(http.StatusCreated, rp)
}

// DELETE /roles/:id/grants/:permission?mode=all
func (h *RoleHandler) Revoke(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	mode, err := models.ParseMode(c.DefaultQuery("mode", string(models.ModeAll)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mode"})
		return
	}
	if err := h.service.Revoke(c.Request.Context(), id, c.Param("permission"), mode); err != nil {
		writeError(c, "role", "revoke", err)
		return
	}
	c.Status(http.StatusNoContent)
}
