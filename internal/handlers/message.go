package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/services"
	"github.com/tomoya0245/sa-chat/internal/types"
	"github.com/tomoya0245/sa-chat/internal/utils"
)

type MessageHandler struct {
	log            *logger.Logger
	messageService services.MessageService
	readService    services.ReadService
}

func NewMessageHandler(log *logger.Logger, msvc services.MessageService, rsvc services.ReadService) *MessageHandler {
	return &MessageHandler{
		log:            log.With("handler", "MessageHandler"),
		messageService: msvc,
		readService:    rsvc,
	}
}

type sendMessageRequest struct {
	Body     string `json:"body" form:"body"`
	ParentID string `json:"parent_id" form:"parent_id"`
}

// parseSend reads body text, optional parent id and optional file
// attachment from either a JSON or a multipart request.
func parseSend(c *gin.Context) (body string, parentID *uuid.UUID, attachment *services.AttachmentUpload, err error) {
	var req sendMessageRequest
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err = c.ShouldBind(&req); err != nil {
			return
		}
		if fh, fileErr := c.FormFile("attachment"); fileErr == nil && fh != nil {
			f, openErr := fh.Open()
			if openErr != nil {
				err = openErr
				return
			}
			attachment = &services.AttachmentUpload{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        f,
			}
		}
	} else if err = c.ShouldBindJSON(&req); err != nil {
		return
	}
	body = req.Body
	if req.ParentID != "" {
		id, parseErr := uuid.Parse(req.ParentID)
		if parseErr != nil {
			err = parseErr
			return
		}
		parentID = &id
	}
	return
}

// POST /api/courses/:code/messages
// A student posts into their own thread; the thread key comes from the
// caller's identity, never from the request body.
func (h *MessageHandler) SendAsStudent(c *gin.Context) {
	rd := requireViewer(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	body, parentID, attachment, err := parseSend(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	msg, err := h.messageService.SendAsStudent(c.Request.Context(), services.SendStudentInput{
		CourseCode:    code,
		ClientToken:   utils.ClientToken(rd.UserID, code),
		StudentUserID: rd.UserID,
		Body:          body,
		Attachment:    attachment,
		ParentID:      parentID,
	})
	if err != nil {
		h.log.Error("SendAsStudent failed", "error", err, "course_code", code, "user_id", rd.UserID)
		RespondServiceError(c, "send_message_failed", err)
		return
	}
	RespondOK(c, gin.H{"message": msg})
}

// POST /api/courses/:code/threads/:token/messages
func (h *MessageHandler) SendAsSA(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := c.Param("token")
	body, parentID, attachment, err := parseSend(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	msg, err := h.messageService.SendAsSA(c.Request.Context(), services.SendSAInput{
		CourseCode:  code,
		ClientToken: token,
		SAUserID:    rd.UserID,
		SAName:      rd.DisplayName,
		Body:        body,
		Attachment:  attachment,
		ParentID:    parentID,
	})
	if err != nil {
		h.log.Error("SendAsSA failed", "error", err, "course_code", code, "client_token", token, "user_id", rd.UserID)
		RespondServiceError(c, "send_message_failed", err)
		return
	}
	RespondOK(c, gin.H{"message": msg})
}

// GET /api/courses/:code/messages
func (h *MessageHandler) ListCourseMessages(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	messages, err := h.messageService.ListByCourse(c.Request.Context(), code)
	if err != nil {
		h.log.Error("ListCourseMessages failed", "error", err, "course_code", code)
		RespondServiceError(c, "list_messages_failed", err)
		return
	}
	RespondOK(c, gin.H{"messages": messages})
}

// GET /api/courses/:code/threads/:token/messages
// Opening a thread as SA also advances the SA read cursor for it.
func (h *MessageHandler) ListThreadMessages(c *gin.Context) {
	rd := requireViewer(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := c.Param("token")
	own := utils.ClientToken(rd.UserID, code)
	if rd.Role != types.RoleSA && token != own {
		RespondError(c, http.StatusForbidden, "thread_forbidden", nil)
		return
	}
	messages, err := h.messageService.ListByThread(c.Request.Context(), code, token)
	if err != nil {
		h.log.Error("ListThreadMessages failed", "error", err, "course_code", code, "client_token", token)
		RespondServiceError(c, "list_messages_failed", err)
		return
	}
	h.advanceCursor(c, code, token, rd.Role, messages)
	RespondOK(c, gin.H{"messages": messages})
}

// advanceCursor moves the viewer's read cursor after a thread view.
// The SA cursor moves to now on open; the student cursor moves to the
// newest message the response actually carried, so a row committed
// after the list query stays unread. An empty thread writes no
// student cursor at all. A failed advance only costs an unread badge,
// so it never fails the request.
func (h *MessageHandler) advanceCursor(c *gin.Context, code, token, role string, messages []*types.Message) {
	readerRole := types.ReaderRoleStudent
	at := time.Now().UTC()
	if role == types.RoleSA {
		readerRole = types.ReaderRoleSA
	} else {
		if len(messages) == 0 {
			return
		}
		at = messages[len(messages)-1].CreatedAt
	}
	if _, err := h.readService.MarkRead(c.Request.Context(), code, token, readerRole, at); err != nil {
		h.log.Warn("Advancing read cursor failed", "error", err, "course_code", code, "client_token", token)
	}
}

// GET /api/courses/:code/me/thread
// The student's own thread plus their derived thread key.
func (h *MessageHandler) GetOwnThread(c *gin.Context) {
	rd := requireViewer(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := utils.ClientToken(rd.UserID, code)
	messages, err := h.messageService.ListByThread(c.Request.Context(), code, token)
	if err != nil {
		h.log.Error("GetOwnThread failed", "error", err, "course_code", code, "user_id", rd.UserID)
		RespondServiceError(c, "list_messages_failed", err)
		return
	}
	h.advanceCursor(c, code, token, rd.Role, messages)
	RespondOK(c, gin.H{"client_token": token, "messages": messages})
}
