package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type SubjectHandler struct {
	BaseHandler
	subjectService services.SubjectService
	outcomeService services.CourseOutcomeService
}

func NewSubjectHandler(
	subjectService services.SubjectService,
	outcomeService services.CourseOutcomeService,
	logger utils.Logger,
) *SubjectHandler {
	return &SubjectHandler{
		BaseHandler:    NewBaseHandler(logger),
		subjectService: subjectService,
		outcomeService: outcomeService,
	}
}

// CreateSubject creates a subject for a semester and academic year
// @Summary Create subject
// @Tags subjects
// @Accept json
// @Produce json
// @Param subject body services.CreateSubjectRequest true "Subject data"
// @Success 201 {object} services.SubjectResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /subjects [post]
func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateSubjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating subject", "code", req.Code)

	subject, err := h.subjectService.Create(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, subject)
}

// ListSubjects lists subjects, optionally filtered by semester and year
// @Summary List subjects
// @Tags subjects
// @Produce json
// @Param semester query int false "Semester"
// @Param academicYear query string false "Academic year"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} ListResponse
// @Router /subjects [get]
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	page, size := parsePage(c)
	filters := repositories.SubjectFilters{
		Semester:     parseIntQueryPtr(c, "semester"),
		AcademicYear: c.Query("academicYear"),
		Limit:        size,
		Offset:       (page - 1) * size,
	}

	subjects, total, err := h.subjectService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: subjects, Total: total, Page: page, Size: size})
}

// GetSubject retrieves a subject by ID
// @Summary Get subject
// @Tags subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} services.SubjectResponse
// @Failure 404 {object} ErrorResponse
// @Router /subjects/{id} [get]
func (h *SubjectHandler) GetSubject(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	subject, err := h.subjectService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, subject)
}

// ListCourseOutcomes lists the course outcomes of a subject
// @Summary List course outcomes
// @Tags course-outcomes
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {array} models.CourseOutcome
// @Router /subjects/{id}/course-outcomes [get]
func (h *SubjectHandler) ListCourseOutcomes(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	outcomes, err := h.outcomeService.ListBySubject(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcomes)
}

// SaveCourseOutcomes creates or updates course outcomes of a subject
// @Summary Save course outcomes
// @Tags course-outcomes
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param outcomes body []services.SaveCourseOutcomeRequest true "Course outcomes"
// @Success 201 {array} models.CourseOutcome
// @Failure 400 {object} ErrorResponse
// @Router /subjects/{id}/course-outcomes [post]
func (h *SubjectHandler) SaveCourseOutcomes(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var reqs []services.SaveCourseOutcomeRequest
	if !h.bindJSON(c, &reqs) {
		return
	}

	h.LogRequest(c, "Saving course outcomes", "subject_id", id, "count", len(reqs))

	outcomes, err := h.outcomeService.Save(c.Request.Context(), p, id, reqs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, outcomes)
}

// UpdateCourseOutcome updates the description of a course outcome
// @Summary Update course outcome
// @Tags course-outcomes
// @Accept json
// @Produce json
// @Param id path string true "Course outcome ID"
// @Param outcome body services.UpdateCourseOutcomeRequest true "Description"
// @Success 200 {object} models.CourseOutcome
// @Router /course-outcomes/{id} [put]
func (h *SubjectHandler) UpdateCourseOutcome(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.UpdateCourseOutcomeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	outcome, err := h.outcomeService.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// DeleteCourseOutcome removes a course outcome and untags its questions
// @Summary Delete course outcome
// @Tags course-outcomes
// @Param id path string true "Course outcome ID"
// @Success 204
// @Router /course-outcomes/{id} [delete]
func (h *SubjectHandler) DeleteCourseOutcome(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting course outcome", "course_outcome_id", id)

	if err := h.outcomeService.Delete(c.Request.Context(), p, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
