package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/requestdata"
	"github.com/tomoya0245/sa-chat/internal/services"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

// requireSA rejects callers whose token does not carry the SA role.
// Returns the request data on success, nil after writing the response
// on failure.
func requireSA(c *gin.Context) *requestdata.RequestData {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil
	}
	if rd.Role != types.RoleSA {
		RespondError(c, http.StatusForbidden, "sa_only", errors.New("requires SA role"))
		return nil
	}
	return rd
}

func requireViewer(c *gin.Context) *requestdata.RequestData {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil
	}
	return rd
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	var req struct {
		Code     string  `json:"code"`
		Title    string  `json:"title"`
		TimeSlot *string `json:"time_slot"`
		Room     *string `json:"room"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	course, err := h.courseService.Create(c.Request.Context(), req.Code, req.Title, req.TimeSlot, req.Room)
	if err != nil {
		h.log.Error("CreateCourse failed", "error", err, "code", req.Code, "user_id", rd.UserID)
		RespondServiceError(c, "create_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

// GET /api/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	if rd := requireViewer(c); rd == nil {
		return
	}
	courses, err := h.courseService.List(c.Request.Context())
	if err != nil {
		h.log.Error("ListCourses failed", "error", err)
		RespondServiceError(c, "list_courses_failed", err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/:code
func (h *CourseHandler) GetCourse(c *gin.Context) {
	if rd := requireViewer(c); rd == nil {
		return
	}
	course, err := h.courseService.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		RespondServiceError(c, "get_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

// DELETE /api/courses/:code
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	rd := requireSA(c)
	if rd == nil {
		return
	}
	code := c.Param("code")
	if err := h.courseService.Delete(c.Request.Context(), code); err != nil {
		h.log.Error("DeleteCourse failed", "error", err, "code", code, "user_id", rd.UserID)
		RespondServiceError(c, "delete_course_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": code})
}
