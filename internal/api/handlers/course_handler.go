package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KokiWakatsuki/lingua-path/back/internal/api/middleware"
	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
	"github.com/KokiWakatsuki/lingua-path/back/internal/services"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

type CourseHandler struct {
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// GenerateCourse builds a course from the caller's stored goals. A JSON body
// with "goals" overrides individual fields.
func (h *CourseHandler) GenerateCourse(c *gin.Context) {
	userID := middleware.UserID(c)

	var req models.GenerateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.WriteErrorResponse(c, http.StatusBadRequest, "Invalid JSON")
		return
	}

	result, err := h.courseService.GenerateCourseForUser(c.Request.Context(), userID, req.Goals)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.WriteJSONResponse(c, http.StatusCreated, models.GenerateCourseResponse{
		Success:  true,
		Status:   "completed",
		CourseID: result.CourseID,
		Course:   result.Course,
	})
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || courseID <= 0 {
		utils.WriteErrorResponse(c, http.StatusBadRequest, "invalid course id")
		return
	}

	course, tasks, err := h.courseService.GetCourse(c.Request.Context(), middleware.UserID(c), courseID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.WriteJSONResponse(c, http.StatusOK, models.CourseDetailResponse{
		Success: true,
		Course:  course,
		Tasks:   tasks,
	})
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	courses, err := h.courseService.ListCourses(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if courses == nil {
		courses = []*models.Course{}
	}
	utils.WriteJSONResponse(c, http.StatusOK, gin.H{
		"success": true,
		"courses": courses,
	})
}
