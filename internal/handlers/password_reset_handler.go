package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/models"
	"taskmarket/internal/services"
)

type PasswordResetHandler struct {
	service services.PasswordResetService
}

func NewPasswordResetHandler(service services.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{service: service}
}

// @Summary      Запрос на сброс пароля
// @Description  Отправляет код сброса на почту. Ответ одинаковый, даже если email не зарегистрирован
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ForgotPasswordRequest  true  "Email"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /password/forgot [post]
func (h *PasswordResetHandler) Forgot(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.RequestReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, "password-reset", "forgot", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the email is registered, a reset code has been sent"})
}

// @Summary      Установка нового пароля по коду
// @Tags         Auth
// @Accept       json
// @Param        body  body  models.ResetPasswordRequest  true  "Код и новый пароль"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /password/reset [post]
func (h *PasswordResetHandler) Reset(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		writeError(c, "password-reset", "reset", err)
		return
	}
	c.Status(http.StatusNoContent)
}
