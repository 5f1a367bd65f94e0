package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/authz"
	"taskmarket/internal/middleware"
	"taskmarket/internal/models"
)

// более устойчиво к типам (int / int64 / float64 / string)
func getInt64FromCtx(c *gin.Context, key string) (int64, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getUserAndMode(c *gin.Context) (userID int64, mode models.Mode) {
	userID, _ = getInt64FromCtx(c, middleware.CtxUserID)
	if v, ok := c.Get(middleware.CtxMode); ok {
		mode, _ = v.(models.Mode)
	}
	return
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to status codes. Anything unrecognised is a
// 500 with the detail kept in the log only.
func writeError(c *gin.Context, area, op string, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, models.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, models.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, authz.ErrInvalidToken), errors.Is(err, models.ErrTokenRevoked):
		status, msg = http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, models.ErrForbidden):
		status, msg = http.StatusForbidden, "not permitted"
	case errors.Is(err, models.ErrInvalidMode):
		status, msg = http.StatusBadRequest, "invalid mode"
	case errors.Is(err, models.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrAlreadyExists):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrNoQuantity),
		errors.Is(err, models.ErrTaskNotClaimable),
		errors.Is(err, models.ErrAlreadyClaimed),
		errors.Is(err, models.ErrOwnTask),
		errors.Is(err, models.ErrReservationExpired),
		errors.Is(err, models.ErrIllegalTransition):
		status, msg = http.StatusConflict, err.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Printf("[%s][%s][err] %v", area, op, err)
	} else {
		log.Printf("[%s][%s][%d] %v", area, op, status, err)
	}
	c.JSON(status, gin.H{"error": msg})
}
