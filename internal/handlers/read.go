package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/services"
	"github.com/tomoya0245/sa-chat/internal/types"
	"github.com/tomoya0245/sa-chat/internal/utils"
)

type ReadHandler struct {
	log         *logger.Logger
	readService services.ReadService
}

func NewReadHandler(log *logger.Logger, readService services.ReadService) *ReadHandler {
	return &ReadHandler{
		log:         log.With("handler", "ReadHandler"),
		readService: readService,
	}
}

func readerRole(role string) string {
	if role == types.RoleSA {
		return types.ReaderRoleSA
	}
	return types.ReaderRoleStudent
}

// POST /api/courses/:code/threads/:token/read
// Advances the caller's read cursor for the thread. An omitted
// timestamp means "now"; the cursor never moves backwards.
func (h *ReadHandler) MarkRead(c *gin.Context) {
	rd := requireViewer(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := c.Param("token")
	if rd.Role != types.RoleSA && token != utils.ClientToken(rd.UserID, code) {
		RespondError(c, http.StatusForbidden, "thread_forbidden", nil)
		return
	}
	var req struct {
		At *time.Time `json:"at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	at := time.Now().UTC()
	if req.At != nil {
		at = *req.At
	}
	cursor, err := h.readService.MarkRead(c.Request.Context(), code, token, readerRole(rd.Role), at)
	if err != nil {
		h.log.Error("MarkRead failed", "error", err, "course_code", code, "client_token", token, "user_id", rd.UserID)
		RespondServiceError(c, "mark_read_failed", err)
		return
	}
	RespondOK(c, gin.H{"cursor": cursor})
}

// GET /api/courses/:code/threads/:token/unread
func (h *ReadHandler) UnreadCount(c *gin.Context) {
	rd := requireViewer(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := c.Param("token")
	if rd.Role != types.RoleSA && token != utils.ClientToken(rd.UserID, code) {
		RespondError(c, http.StatusForbidden, "thread_forbidden", nil)
		return
	}
	count, err := h.readService.UnreadCount(c.Request.Context(), code, token, readerRole(rd.Role))
	if err != nil {
		h.log.Error("UnreadCount failed", "error", err, "course_code", code, "client_token", token)
		RespondServiceError(c, "unread_count_failed", err)
		return
	}
	RespondOK(c, gin.H{"unread": count})
}

// GET /api/courses/:code/reads
// Every cursor of the caller's role in the course, for badge fan-out.
func (h *ReadHandler) ListCursors(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	role := c.DefaultQuery("role", types.ReaderRoleSA)
	if role != types.ReaderRoleSA && role != types.ReaderRoleStudent {
		RespondError(c, http.StatusBadRequest, "invalid_role", nil)
		return
	}
	cursors, err := h.readService.ListByCourseRole(c.Request.Context(), code, role)
	if err != nil {
		h.log.Error("ListCursors failed", "error", err, "course_code", code, "role", role)
		RespondServiceError(c, "list_cursors_failed", err)
		return
	}
	RespondOK(c, gin.H{"cursors": cursors})
}
