package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PaperHandler struct {
	BaseHandler
	paperService services.PaperService
}

func NewPaperHandler(paperService services.PaperService, logger utils.Logger) *PaperHandler {
	return &PaperHandler{
		BaseHandler:  NewBaseHandler(logger),
		paperService: paperService,
	}
}

// ComposePaper builds a paper draft from the selected questions
// @Summary Compose paper
// @Tags papers
// @Accept json
// @Produce json
// @Param paper body services.ComposePaperRequest true "Selected questions"
// @Success 201 {object} services.PaperResponse
// @Failure 400 {object} ErrorResponse
// @Router /papers [post]
func (h *PaperHandler) ComposePaper(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.ComposePaperRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Composing paper", "subject_id", req.SubjectID, "questions", len(req.SelectedQuestionIDs))

	paper, err := h.paperService.Compose(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, paper)
}

// GetPaper returns a paper draft
// @Summary Get paper
// @Tags papers
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} services.PaperResponse
// @Failure 404 {object} ErrorResponse
// @Router /papers/{id} [get]
func (h *PaperHandler) GetPaper(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	paper, err := h.paperService.Get(c.Request.Context(), p, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paper)
}

// MoveEntry swaps an entry with its neighbour
// @Summary Move paper entry
// @Tags papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param move body services.MoveEntryRequest true "Index and direction"
// @Success 200 {object} services.PaperResponse
// @Failure 422 {object} ErrorResponse
// @Router /papers/{id}/move [post]
func (h *PaperHandler) MoveEntry(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.MoveEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	paper, err := h.paperService.Move(c.Request.Context(), p, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paper)
}

// RemoveEntry deletes an entry from the draft
// @Summary Remove paper entry
// @Tags papers
// @Produce json
// @Param id path string true "Paper ID"
// @Param index path int true "Entry index"
// @Success 200 {object} services.PaperResponse
// @Router /papers/{id}/entries/{index} [delete]
func (h *PaperHandler) RemoveEntry(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	index, ok := ParseIndexParam(c, "index")
	if !ok {
		return
	}

	paper, err := h.paperService.Remove(c.Request.Context(), p, id, index)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paper)
}

// UpdateHeader edits the paper header fields
// @Summary Update paper header
// @Tags papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param header body services.UpdateHeaderRequest true "Header"
// @Success 200 {object} services.PaperResponse
// @Router /papers/{id}/header [put]
func (h *PaperHandler) UpdateHeader(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.UpdateHeaderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	paper, err := h.paperService.UpdateHeader(c.Request.Context(), p, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paper)
}

// PrintPaper renders the draft as a printable HTML page
// @Summary Print paper
// @Tags papers
// @Produce html
// @Param id path string true "Paper ID"
// @Success 200 {string} string
// @Router /papers/{id}/print [get]
func (h *PaperHandler) PrintPaper(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	job, err := h.paperService.Print(c.Request.Context(), p, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", job.HTML)
}

// ExportPaper downloads the draft as a workbook
// @Summary Export paper
// @Tags papers
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Paper ID"
// @Success 200 {file} file
// @Router /papers/{id}/export [get]
func (h *PaperHandler) ExportPaper(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	file, err := h.paperService.ExportExcel(c.Request.Context(), p, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	attachment(c, file.Name, xlsxContentType, file.Data)
}

// DiscardPaper drops the draft
// @Summary Discard paper
// @Tags papers
// @Param id path string true "Paper ID"
// @Success 204
// @Router /papers/{id} [delete]
func (h *PaperHandler) DiscardPaper(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.paperService.Discard(c.Request.Context(), p, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
