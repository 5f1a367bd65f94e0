package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/models"
	"taskmarket/internal/services"
)

type UserHandler struct {
	service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// @Summary      Регистрация
// @Description  Создаёт аккаунт в режиме taskDoer с ролью участника
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "Данные пользователя"
// @Success      201   {object}  models.User
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[user][register][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, "user", "register", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := h.service.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, "user", "list", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GET /users/:id
func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, "user", "get", err)
		return
	}
	roles, err := h.service.GetUserRoles(c.Request.Context(), id)
	if err != nil {
		writeError(c, "user", "get", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "roles": roles})
}

// POST /users/:id/roles
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		RoleID int64 `json:"role_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, _ := getUserAndMode(c)
	if err := h.service.AssignRole(c.Request.Context(), id, req.RoleID); err != nil {
		writeError(c, "user", "assignRole", err)
		return
	}
	log.Printf("[user][assignRole][ok] by=%d user=%d role=%d", actor, id, req.RoleID)
	c.Status(http.StatusNoContent)
}

// DELETE /users/:id/roles/:role_id
func (h *UserHandler) RemoveRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	roleID, ok := parseIDParam(c, "role_id")
	if !ok {
		return
	}
	actor, _ := getUserAndMode(c)
	if err := h.service.RemoveRole(c.Request.Context(), id, roleID); err != nil {
		writeError(c, "user", "removeRole", err)
		return
	}
	log.Printf("[user][removeRole][ok] by=%d user=%d role=%d", actor, id, roleID)
	c.Status(http.StatusNoContent)
}
