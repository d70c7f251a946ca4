package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	transfer        services.ImportExportService
}

func NewQuestionHandler(
	questionService services.QuestionService,
	transfer services.ImportExportService,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		transfer:        transfer,
	}
}

// CreateQuestion creates a new question
// @Summary Create question
// @Description Stores an edited question for a subject, optionally tagged with a course outcome
// @Tags questions
// @Accept json
// @Produce json
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.CreateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating question", "subject_id", req.SubjectID)

	question, err := h.questionService.Create(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// CreateQuestionsBatch stores plain text questions, one paragraph each
// @Summary Bulk create questions
// @Tags questions
// @Accept json
// @Produce json
// @Param questions body services.BulkCreateQuestionsRequest true "Question texts"
// @Success 201 {array} services.QuestionResponse
// @Router /questions/batch [post]
func (h *QuestionHandler) CreateQuestionsBatch(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.BulkCreateQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating questions batch", "subject_id", req.SubjectID, "count", len(req.Questions))

	questions, err := h.questionService.BulkCreate(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, questions)
}

// ListQuestions lists questions newest first
// @Summary List questions
// @Tags questions
// @Produce json
// @Param subjectId query string false "Subject ID"
// @Param courseOutcomeId query string false "Course outcome ID"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} ListResponse
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	page, size := parsePage(c)
	filters := repositories.QuestionFilters{
		SubjectID: c.Query("subjectId"),
		CreatedBy: c.Query("createdBy"),
		Limit:     size,
		Offset:    (page - 1) * size,
		SortOrder: c.Query("sortOrder"),
	}
	if co := c.Query("courseOutcomeId"); co != "" {
		filters.CourseOutcomeID = &co
	}

	questions, total, err := h.questionService.List(c.Request.Context(), p, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Data: questions, Total: total, Page: page, Size: size})
}

// GetQuestion retrieves a question by ID
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} services.QuestionResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), p, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestionContent replaces the editor content of a question
// @Summary Update question content
// @Tags questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param content body services.UpdateContentRequest true "Editor data"
// @Success 200 {object} services.QuestionResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestionContent(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.UpdateContentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating question content", "question_id", id, "blocks", len(req.EditorData.Blocks))

	question, err := h.questionService.UpdateContent(c.Request.Context(), p, id, req.EditorData)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestionCourseOutcome tags or untags a question
// @Summary Update question course outcome
// @Tags questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param outcome body services.UpdateCourseOutcomeAssignmentRequest true "Course outcome"
// @Success 200 {object} services.QuestionResponse
// @Router /questions/{id}/course-outcome [put]
func (h *QuestionHandler) UpdateQuestionCourseOutcome(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.UpdateCourseOutcomeAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	question, err := h.questionService.UpdateCourseOutcome(c.Request.Context(), p, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion deletes a question
// @Summary Delete question
// @Tags questions
// @Param id path string true "Question ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.questionService.Delete(c.Request.Context(), p, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ImportQuestions stores the rows of an uploaded csv or xlsx file
// @Summary Import questions
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param subjectId formData string true "Subject ID"
// @Param file formData file true "csv or xlsx file"
// @Success 200 {object} models.ImportSummary
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Missing file", Details: err.Error()})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unreadable file", err)
		return
	}
	defer file.Close()

	subjectID := c.PostForm("subjectId")
	h.LogRequest(c, "Importing questions", "subject_id", subjectID, "filename", header.Filename, "size", header.Size)

	summary, err := h.transfer.ImportQuestions(c.Request.Context(), p, subjectID, header.Filename, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportQuestions downloads the question bank of a subject
// @Summary Export questions
// @Tags questions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param subjectId query string true "Subject ID"
// @Param courseOutcomeId query string false "Course outcome ID"
// @Param format query string false "xlsx or csv"
// @Success 200 {file} file
// @Router /questions/export [get]
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	req := services.ExportQuestionsRequest{
		SubjectID: c.Query("subjectId"),
		Format:    models.ExportFormat(c.Query("format")),
	}
	if co := c.Query("courseOutcomeId"); co != "" {
		req.CourseOutcomeID = &co
	}

	file, err := h.transfer.ExportQuestions(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	attachment(c, file.Name, file.ContentType, file.Data)
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}
