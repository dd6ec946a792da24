package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/services"
	"github.com/tomoya0245/sa-chat/internal/utils"
)

type CallHandler struct {
	log         *logger.Logger
	callService services.CallService
}

func NewCallHandler(log *logger.Logger, callService services.CallService) *CallHandler {
	return &CallHandler{
		log:         log.With("handler", "CallHandler"),
		callService: callService,
	}
}

// POST /api/courses/:code/calls
// Students raise a help call on their own thread; repeat calls stack
// rather than replace.
func (h *CallHandler) CreateCall(c *gin.Context) {
	rd := requireViewer(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	var req struct {
		SeatText string `json:"seat_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	call, err := h.callService.Create(c.Request.Context(), code, utils.ClientToken(rd.UserID, code), rd.UserID, req.SeatText)
	if err != nil {
		h.log.Error("CreateCall failed", "error", err, "course_code", code, "user_id", rd.UserID)
		RespondServiceError(c, "create_call_failed", err)
		return
	}
	RespondOK(c, gin.H{"call": call})
}

// GET /api/courses/:code/calls
// The open call queue grouped per thread, most recent first.
func (h *CallHandler) ListCallGroups(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	groups, err := h.callService.Groups(c.Request.Context(), code)
	if err != nil {
		h.log.Error("ListCallGroups failed", "error", err, "course_code", code)
		RespondServiceError(c, "list_calls_failed", err)
		return
	}
	RespondOK(c, gin.H{"groups": groups})
}

// POST /api/courses/:code/threads/:token/calls/handle
// Closes every open call of the thread at once.
func (h *CallHandler) MarkHandled(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := c.Param("token")
	closed, err := h.callService.MarkHandled(c.Request.Context(), code, token)
	if err != nil {
		h.log.Error("MarkHandled failed", "error", err, "course_code", code, "client_token", token, "user_id", rd.UserID)
		RespondServiceError(c, "handle_calls_failed", err)
		return
	}
	RespondOK(c, gin.H{"handled": closed})
}
