package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/services"
)

type LockHandler struct {
	log         *logger.Logger
	lockService services.LockService
}

func NewLockHandler(log *logger.Logger, lockService services.LockService) *LockHandler {
	return &LockHandler{
		log:         log.With("handler", "LockHandler"),
		lockService: lockService,
	}
}

// POST /api/courses/:code/threads/:token/lock
// At most one SA holds a thread; losing the race reports the current
// owner so the UI can show who has it.
func (h *LockHandler) ClaimLock(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := c.Param("token")
	lock, err := h.lockService.Claim(c.Request.Context(), code, token, rd.UserID, rd.DisplayName)
	if err != nil {
		var conflict *apperr.LockConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error": gin.H{
					"message":    conflict.Error(),
					"code":       "lock_held",
					"owner_id":   conflict.OwnerID,
					"owner_name": conflict.OwnerName,
				},
			})
			return
		}
		h.log.Error("ClaimLock failed", "error", err, "course_code", code, "client_token", token, "user_id", rd.UserID)
		RespondServiceError(c, "claim_lock_failed", err)
		return
	}
	RespondOK(c, gin.H{"lock": lock})
}

// DELETE /api/courses/:code/threads/:token/lock
func (h *LockHandler) ReleaseLock(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := c.Param("token")
	if err := h.lockService.Release(c.Request.Context(), code, token, rd.UserID); err != nil {
		h.log.Error("ReleaseLock failed", "error", err, "course_code", code, "client_token", token, "user_id", rd.UserID)
		RespondServiceError(c, "release_lock_failed", err)
		return
	}
	RespondOK(c, gin.H{"released": true})
}

// GET /api/courses/:code/locks
func (h *LockHandler) ListLocks(c *gin.Context) {
	if rd := requireSA(c); rd == nil {
		return
	}
	code := c.Param("code")
	locks, err := h.lockService.ListByCourse(c.Request.Context(), code)
	if err != nil {
		h.log.Error("ListLocks failed", "error", err, "course_code", code)
		RespondServiceError(c, "list_locks_failed", err)
		return
	}
	RespondOK(c, gin.H{"locks": locks})
}
