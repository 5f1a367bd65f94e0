package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/middleware"
	"taskmarket/internal/models"
	"taskmarket/internal/services"
)

type AuthHandler struct {
	userService services.UserService
	authService services.AuthService
}

func NewAuthHandler(userService services.UserService, authService services.AuthService) *AuthHandler {
	return &AuthHandler{userService: userService, authService: authService}
}

// @Summary      Вход в систему
// @Description  Аутентифицирует пользователя и возвращает токены доступа
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Данные для входа"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	start := time.Now()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[auth][login] bad request: bind json failed: err=%v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("[auth][login] attempt email=%q", strings.TrimSpace(req.Email))

	user, tokens, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, "auth", "login", err)
		return
	}

	log.Printf("[auth][login] success userID=%d took=%s", user.ID, time.Since(start).Truncate(time.Millisecond))
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user, // PasswordHash помечен json:"-", наружу не уйдет
		"tokens":  tokens,
	})
}

// @Summary      Обновление токенов
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  models.TokenPair
// @Failure      401  {object}  map[string]string
// @Router       /refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, "auth", "refresh", err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// @Summary      Текущий пользователь, роли и права
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no claims in context"})
		return
	}
	user, err := h.userService.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		writeError(c, "auth", "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"mode":        claims.Mode,
		"roles":       claims.Roles,
		"permissions": claims.Permissions,
	})
}

// @Summary      Переключение режима (taskDoer / taskGiver)
// @Description  Отзывает текущий токен и выдаёт новый с правами выбранного режима
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.SwitchModeRequest  true  "Новый режим"
// @Success      200   {object}  models.TokenPair
// @Failure      400   {object}  map[string]string
// @Router       /auth/mode [post]
func (h *AuthHandler) SwitchMode(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no claims in context"})
		return
	}
	var req models.SwitchModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := models.ParseOperatingMode(string(req.Mode))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be taskDoer or taskGiver"})
		return
	}

	tokens, err := h.authService.SwitchMode(c.Request.Context(), claims, mode)
	if err != nil {
		writeError(c, "auth", "mode", err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// @Summary      Выход
// @Tags         Auth
// @Security     BearerAuth
// @Success      204
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no claims in context"})
		return
	}
	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		writeError(c, "auth", "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}
