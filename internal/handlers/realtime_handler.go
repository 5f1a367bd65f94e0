package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"taskmarket/internal/realtime"
)

type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is open for the REST API as well
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// @Summary      Поток событий по моим исполнениям (WebSocket)
// @Description  Сообщения в формате ExecutionEvent, например task_execution.expired.
// @Tags         Executions
// @Security     BearerAuth
// @Param        access_token  query  string  false  "Токен, если заголовок Authorization недоступен"
// @Success      101
// @Router       /ws/executions [get]
func (h *RealtimeHandler) Executions(c *gin.Context) {
	userID, _ := getUserAndMode(c)
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Printf("[realtime][upgrade][err] userID=%d: %v", userID, err)
		return
	}
	log.Printf("[realtime][connect] userID=%d", userID)
	h.hub.Serve(userID, ws)
	log.Printf("[realtime][disconnect] userID=%d", userID)
}
