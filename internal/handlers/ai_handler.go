package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AIHandler struct {
	BaseHandler
	aiService services.AIService
}

func NewAIHandler(aiService services.AIService, logger utils.Logger) *AIHandler {
	return &AIHandler{
		BaseHandler: NewBaseHandler(logger),
		aiService:   aiService,
	}
}

// GeneratePaper asks the AI collaborator for a two-section paper draft
// @Summary Generate paper
// @Tags ai
// @Accept json
// @Produce json
// @Param request body services.GeneratePaperRequest true "Generation options"
// @Success 200 {object} services.GeneratedPaper
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /ai/generate-paper [post]
func (h *AIHandler) GeneratePaper(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.GeneratePaperRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Generating paper", "subject_id", req.SubjectID, "course_outcomes", len(req.CourseOutcomeIDs))

	paper, err := h.aiService.GeneratePaper(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paper)
}

// CheckDuplicate compares a question with the latest questions of a subject
// @Summary Check duplicate question
// @Tags ai
// @Accept json
// @Produce json
// @Param request body services.DuplicateCheckRequest true "Question text"
// @Success 200 {object} services.DuplicateCheckResult
// @Router /ai/check-duplicate [post]
func (h *AIHandler) CheckDuplicate(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.DuplicateCheckRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.aiService.CheckDuplicate(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
