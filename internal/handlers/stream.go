package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/sse"
	"github.com/tomoya0245/sa-chat/internal/types"
	"github.com/tomoya0245/sa-chat/internal/utils"
)

type StreamHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewStreamHandler(log *logger.Logger, hub *sse.SSEHub) *StreamHandler {
	return &StreamHandler{
		log: log.With("handler", "StreamHandler"),
		hub: hub,
	}
}

// GET /api/courses/:code/stream
// Opens the course change feed. Clients subscribe here FIRST, then
// fetch their snapshot over the REST endpoints, so no change can fall
// between snapshot and subscription.
func (h *StreamHandler) CourseStream(c *gin.Context) {
	rd := requireViewer(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	client := h.hub.NewSSEClient(rd.UserID)
	h.hub.AddChannel(client, sse.CourseChannel(code))
	h.log.Info("Course stream open", "course_code", code, "user_id", rd.UserID, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("Course stream closed", "course_code", code, "client_id", client.ID)
}

// GET /api/courses/:code/me
// The caller's identity within the course: thread key and role.
func (h *StreamHandler) WhoAmI(c *gin.Context) {
	rd := requireViewer(c)
	if rd == nil {
		return
	}
	if rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	code := c.Param("code")
	payload := gin.H{
		"user_id": rd.UserID,
		"role":    rd.Role,
	}
	if rd.Role != types.RoleSA {
		payload["client_token"] = utils.ClientToken(rd.UserID, code)
	}
	RespondOK(c, payload)
}
