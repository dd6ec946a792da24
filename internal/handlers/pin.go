package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/services"
)

type PinHandler struct {
	log        *logger.Logger
	pinService services.PinService
}

func NewPinHandler(log *logger.Logger, pinService services.PinService) *PinHandler {
	return &PinHandler{
		log:        log.With("handler", "PinHandler"),
		pinService: pinService,
	}
}

// POST /api/courses/:code/threads/:token/pin
// Toggles the pin; responds with the pin when set, null when cleared.
func (h *PinHandler) TogglePin(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	token := c.Param("token")
	pin, err := h.pinService.Toggle(c.Request.Context(), code, token)
	if err != nil {
		h.log.Error("TogglePin failed", "error", err, "course_code", code, "client_token", token, "user_id", rd.UserID)
		RespondServiceError(c, "toggle_pin_failed", err)
		return
	}
	RespondOK(c, gin.H{"pin": pin})
}

// GET /api/courses/:code/pins
func (h *PinHandler) ListPins(c *gin.Context) {
	if rd := requireSA(c); rd == nil {
		return
	}
	code := c.Param("code")
	pins, err := h.pinService.ListByCourse(c.Request.Context(), code)
	if err != nil {
		h.log.Error("ListPins failed", "error", err, "course_code", code)
		RespondServiceError(c, "list_pins_failed", err)
		return
	}
	RespondOK(c, gin.H{"pins": pins})
}
