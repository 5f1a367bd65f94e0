package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/models"
	"taskmarket/internal/services"
)

type TaskHandler struct {
	service services.TaskService
}

func NewTaskHandler(service services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// @Summary      Создать задачу
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.CreateTaskRequest  true  "Задача"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, mode := getUserAndMode(c)
	log.Printf("[task][create] call by userID=%d mode=%s", userID, mode)

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, "task", "create", err)
		return
	}
	log.Printf("[task][create][ok] id=%d giver=%d qty=%d", task.ID, task.GiverID, task.Quantity)
	c.JSON(http.StatusCreated, task)
}

// GET /tasks?platform=&status=&admin_status=&mine=true&limit=&offset=
func (h *TaskHandler) GetAll(c *gin.Context) {
	userID, _ := getUserAndMode(c)

	var filter models.TaskFilter
	if v := c.Query("platform"); v != "" {
		filter.Platform = &v
	}
	if v := c.Query("status"); v != "" {
		st := models.TaskStatus(v)
		filter.Status = &st
	}
	if v := c.Query("admin_status"); v != "" {
		st := models.AdminStatus(v)
		filter.AdminStatus = &st
	}
	if c.Query("mine") == "true" {
		filter.GiverID = &userID
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	tasks, err := h.service.GetAll(c.Request.Context(), filter)
	if err != nil {
		writeError(c, "task", "getAll", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GET /tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	task, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, "task", "getByID", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// POST /tasks/:id/status  {"status":"paused"}
func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := getUserAndMode(c)
	task, err := h.service.UpdateStatus(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		writeError(c, "task", "status", err)
		return
	}
	log.Printf("[task][status][ok] id=%d status=%s", id, task.Status)
	c.JSON(http.StatusOK, task)
}

// POST /tasks/:id/moderate  {"admin_status":"approved"}
func (h *TaskHandler) Moderate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.ModerateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := getUserAndMode(c)
	task, err := h.service.Moderate(c.Request.Context(), id, req.AdminStatus)
	if err != nil {
		writeError(c, "task", "moderate", err)
		return
	}
	log.Printf("[task][moderate][ok] id=%d admin_status=%s by=%d", id, task.AdminStatus, userID)
	c.JSON(http.StatusOK, task)
}

// @Summary      Взять задачу в работу
// @Description  Резервирует одну единицу задачи; резерв истекает, если доказательство не отправлено вовремя
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "ID задачи"
// @Success      201  {object}  models.TaskExecution
// @Failure      409  {object}  map[string]string
// @Router       /tasks/{id}/claim [post]
func (h *TaskHandler) Claim(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, _ := getUserAndMode(c)
	exec, err := h.service.Claim(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, "task", "claim", err)
		return
	}
	c.JSON(http.StatusCreated, exec)
}

// GET /executions/mine
func (h *TaskHandler) MyExecutions(c *gin.Context) {
	userID, _ := getUserAndMode(c)
	list, err := h.service.MyExecutions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "execution", "mine", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /executions/:id/submit  {"proof_url":"https://..."}
func (h *TaskHandler) Submit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := getUserAndMode(c)
	exec, err := h.service.SubmitProof(c.Request.Context(), userID, id, req.ProofURL)
	if err != nil {
		writeError(c, "execution", "submit", err)
		return
	}
	log.Printf("[execution][submit][ok] id=%d user=%d", id, userID)
	c.JSON(http.StatusOK, exec)
}

// POST /executions/:id/review  {"approve":true}
func (h *TaskHandler) Review(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req models.ReviewExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := getUserAndMode(c)
	exec, err := h.service.Review(c.Request.Context(), userID, id, req.Approve)
	if err != nil {
		writeError(c, "execution", "review", err)
		return
	}
	log.Printf("[execution][review][ok] id=%d status=%s by=%d", id, exec.Status, userID)
	c.JSON(http.StatusOK, exec)
}
