package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type FacultyHandler struct {
	BaseHandler
	facultyService services.FacultyService
}

func NewFacultyHandler(facultyService services.FacultyService, logger utils.Logger) *FacultyHandler {
	return &FacultyHandler{
		BaseHandler:    NewBaseHandler(logger),
		facultyService: facultyService,
	}
}

// ListFaculty lists faculty accounts
// @Summary List faculty
// @Tags faculty
// @Produce json
// @Param approved query bool false "Filter by approval"
// @Success 200 {object} ListResponse
// @Router /faculty [get]
func (h *FacultyHandler) ListFaculty(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	page, size := parsePage(c)
	filters := repositories.UserFilters{Limit: size, Offset: (page - 1) * size}
	if raw := c.Query("approved"); raw != "" {
		approved, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid approved", Details: err.Error()})
			return
		}
		filters.Approved = &approved
	}

	faculty, total, err := h.facultyService.List(c.Request.Context(), p, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: faculty, Total: total, Page: page, Size: size})
}

// ApproveFaculty approves a pending faculty account
// @Summary Approve faculty
// @Tags faculty
// @Param id path string true "Faculty ID"
// @Success 200 {object} SuccessResponse
// @Router /faculty/{id}/approve [post]
func (h *FacultyHandler) ApproveFaculty(c *gin.Context) {
	h.act(c, "Faculty approved", h.facultyService.Approve)
}

// DenyFaculty removes a pending faculty account
// @Summary Deny faculty
// @Tags faculty
// @Param id path string true "Faculty ID"
// @Success 200 {object} SuccessResponse
// @Router /faculty/{id}/deny [post]
func (h *FacultyHandler) DenyFaculty(c *gin.Context) {
	h.act(c, "Faculty denied", h.facultyService.Deny)
}

// DeleteFaculty removes a faculty account
// @Summary Delete faculty
// @Tags faculty
// @Param id path string true "Faculty ID"
// @Success 200 {object} SuccessResponse
// @Router /faculty/{id} [delete]
func (h *FacultyHandler) DeleteFaculty(c *gin.Context) {
	h.act(c, "Faculty deleted", h.facultyService.Delete)
}

func (h *FacultyHandler) act(c *gin.Context, message string, action func(context.Context, *auth.Principal, string) error) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, message, "faculty_id", id)

	if err := action(c.Request.Context(), p, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, message, gin.H{"id": id})
}

// UpdateFaculty updates profile fields of a faculty account
// @Summary Update faculty
// @Tags faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param faculty body services.UpdateFacultyRequest true "Profile fields"
// @Success 200 {object} services.FacultyResponse
// @Router /faculty/{id} [put]
func (h *FacultyHandler) UpdateFaculty(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.UpdateFacultyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	faculty, err := h.facultyService.Update(c.Request.Context(), p, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, faculty)
}

// AssignSubject assigns a subject to a faculty member
// @Summary Assign subject
// @Tags faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param assignment body services.AssignSubjectRequest true "Subject"
// @Success 200 {object} services.AssignResult
// @Router /faculty/{id}/subjects [post]
func (h *FacultyHandler) AssignSubject(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.AssignSubjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Assigning subject", "faculty_id", id, "subject_id", req.SubjectID)

	result, err := h.facultyService.AssignSubject(c.Request.Context(), p, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Profile returns the caller's own account
// @Summary Current profile
// @Tags me
// @Produce json
// @Success 200 {object} services.FacultyResponse
// @Router /me [get]
func (h *FacultyHandler) Profile(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	profile, err := h.facultyService.Profile(c.Request.Context(), p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// MySubjects lists the subjects assigned to the caller
// @Summary Own subjects
// @Tags me
// @Produce json
// @Success 200 {array} services.SubjectResponse
// @Router /me/subjects [get]
func (h *FacultyHandler) MySubjects(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	subjects, err := h.facultyService.MySubjects(c.Request.Context(), p)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, subjects)
}
