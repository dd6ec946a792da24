package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/services"
)

type ProfileHandler struct {
	log            *logger.Logger
	profileService services.ProfileService
}

func NewProfileHandler(log *logger.Logger, profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		log:            log.With("handler", "ProfileHandler"),
		profileService: profileService,
	}
}

// GET /api/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	profile, err := h.profileService.Get(c.Request.Context(), rd.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			RespondOK(c, gin.H{"profile": nil, "display_name": rd.DisplayName})
			return
		}
		h.log.Error("GetProfile failed", "error", err, "user_id", rd.UserID)
		RespondServiceError(c, "get_profile_failed", err)
		return
	}
	RespondOK(c, gin.H{"profile": profile, "display_name": profile.DisplayName})
}

// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	profile, err := h.profileService.Update(c.Request.Context(), rd.UserID, req.DisplayName)
	if err != nil {
		h.log.Error("UpdateProfile failed", "error", err, "user_id", rd.UserID)
		RespondServiceError(c, "update_profile_failed", err)
		return
	}
	RespondOK(c, gin.H{"profile": profile})
}
