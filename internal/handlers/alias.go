package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/services"
)

type AliasHandler struct {
	log          *logger.Logger
	aliasService services.AliasService
}

func NewAliasHandler(log *logger.Logger, aliasService services.AliasService) *AliasHandler {
	return &AliasHandler{
		log:          log.With("handler", "AliasHandler"),
		aliasService: aliasService,
	}
}

// POST /api/courses/:code/aliases/ensure
// Assigns "Student N" numbers to any listed threads that lack one and
// returns the full token-to-number map for the course.
func (h *AliasHandler) EnsureAliases(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	var req struct {
		ClientTokens []string `json:"client_tokens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	aliases, err := h.aliasService.EnsureAliases(c.Request.Context(), code, req.ClientTokens)
	if err != nil {
		h.log.Error("EnsureAliases failed", "error", err, "course_code", code, "user_id", rd.UserID)
		RespondServiceError(c, "ensure_aliases_failed", err)
		return
	}
	RespondOK(c, gin.H{"aliases": aliases})
}

// GET /api/courses/:code/aliases
func (h *AliasHandler) ListAliases(c *gin.Context) {
	if rd := requireSA(c); rd == nil {
		return
	}
	code := c.Param("code")
	aliases, err := h.aliasService.ListByCourse(c.Request.Context(), code)
	if err != nil {
		h.log.Error("ListAliases failed", "error", err, "course_code", code)
		RespondServiceError(c, "list_aliases_failed", err)
		return
	}
	RespondOK(c, gin.H{"aliases": aliases})
}
