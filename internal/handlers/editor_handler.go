package handlers

import (
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// EditorHandler exposes server-side editor sessions. Every mutation answers
// with the whole saved document so clients can re-render from it.
type EditorHandler struct {
	BaseHandler
	editorService services.EditorService
}

func NewEditorHandler(editorService services.EditorService, logger utils.Logger) *EditorHandler {
	return &EditorHandler{
		BaseHandler:   NewBaseHandler(logger),
		editorService: editorService,
	}
}

// OpenSession opens an editor session for a stored or a new question
// @Summary Open editor session
// @Tags editor
// @Accept json
// @Produce json
// @Param request body services.OpenEditorRequest false "Question to edit"
// @Success 201 {object} services.EditorSessionResponse
// @Router /editor/sessions [post]
func (h *EditorHandler) OpenSession(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	var req services.OpenEditorRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Opening editor session", "question_id", req.QuestionID)

	session, err := h.editorService.Open(c.Request.Context(), p, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession returns the saved document of a session
// @Summary Get editor session
// @Tags editor
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.EditorSessionResponse
// @Router /editor/sessions/{id} [get]
func (h *EditorHandler) GetSession(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	h.respond(c)(h.editorService.Get(c.Request.Context(), p, id))
}

// InsertBlock inserts a block at an index
// @Summary Insert block
// @Tags editor
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body services.InsertBlockRequest true "Block in wire form"
// @Success 200 {object} services.EditorSessionResponse
// @Router /editor/sessions/{id}/blocks [post]
func (h *EditorHandler) InsertBlock(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	var req services.InsertBlockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.editorService.InsertBlock(c.Request.Context(), p, id, &req))
}

// RemoveBlock removes the block at an index
// @Summary Remove block
// @Tags editor
// @Produce json
// @Param id path string true "Session ID"
// @Param index path int true "Block index"
// @Success 200 {object} services.EditorSessionResponse
// @Router /editor/sessions/{id}/blocks/{index} [delete]
func (h *EditorHandler) RemoveBlock(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	index, ok := ParseIndexParam(c, "index")
	if !ok {
		return
	}
	h.respond(c)(h.editorService.RemoveBlock(c.Request.Context(), p, id, index))
}

// MoveBlock moves a block to another position
// @Summary Move block
// @Tags editor
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body services.MoveBlockRequest true "From and to"
// @Success 200 {object} services.EditorSessionResponse
// @Router /editor/sessions/{id}/blocks/move [post]
func (h *EditorHandler) MoveBlock(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	var req services.MoveBlockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.editorService.MoveBlock(c.Request.Context(), p, id, &req))
}

// EditMath replaces the expression of a math block
// @Summary Edit math block
// @Tags editor
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body services.EditMathRequest true "LaTeX or MathML"
// @Success 200 {object} services.EditorSessionResponse
// @Router /editor/sessions/{id}/math [put]
func (h *EditorHandler) EditMath(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	var req services.EditMathRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.editorService.EditMath(c.Request.Context(), p, id, &req))
}

// SetAlignment aligns a block
// @Summary Set block alignment
// @Tags editor
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body services.SetAlignmentRequest true "Index and alignment"
// @Success 200 {object} services.EditorSessionResponse
// @Router /editor/sessions/{id}/alignment [put]
func (h *EditorHandler) SetAlignment(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	var req services.SetAlignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c)(h.editorService.SetAlignment(c.Request.Context(), p, id, &req))
}

// InsertImage uploads an image and inserts it as an image block
// @Summary Insert image block
// @Tags editor
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param upload formData file true "Image"
// @Param index formData int false "Insert position, appends when absent"
// @Param caption formData string false "Caption"
// @Success 200 {object} services.EditorSessionResponse
// @Failure 502 {object} ErrorResponse
// @Router /editor/sessions/{id}/images [post]
func (h *EditorHandler) InsertImage(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}

	index := -1
	if raw := c.PostForm("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid index", Details: "must be a non-negative integer"})
			return
		}
		index = n
	}
	file, ok := readFormImage(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Inserting image", "session_id", id, "size", len(file.Data))

	if index < 0 {
		current, err := h.editorService.Get(c.Request.Context(), p, id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		index = len(current.EditorData.Blocks)
	}
	h.respond(c)(h.editorService.InsertImage(c.Request.Context(), p, id, index, file, c.PostForm("caption")))
}

// ClearSession empties the document
// @Summary Clear editor session
// @Tags editor
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.EditorSessionResponse
// @Router /editor/sessions/{id}/clear [post]
func (h *EditorHandler) ClearSession(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	h.respond(c)(h.editorService.Clear(c.Request.Context(), p, id))
}

// CommitSession stores the session document as a question
// @Summary Commit editor session
// @Tags editor
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body services.CommitRequest false "Metadata for a new question"
// @Success 200 {object} services.QuestionResponse
// @Router /editor/sessions/{id}/commit [post]
func (h *EditorHandler) CommitSession(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	var req services.CommitRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Committing editor session", "session_id", id)

	question, err := h.editorService.Commit(c.Request.Context(), p, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// CloseSession ends a session
// @Summary Close editor session
// @Tags editor
// @Param id path string true "Session ID"
// @Success 204
// @Router /editor/sessions/{id} [delete]
func (h *EditorHandler) CloseSession(c *gin.Context) {
	p, id, ok := h.sessionParams(c)
	if !ok {
		return
	}
	if err := h.editorService.Close(c.Request.Context(), p, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EditorHandler) sessionParams(c *gin.Context) (*auth.Principal, string, bool) {
	p, ok := h.principal(c)
	if !ok {
		return nil, "", false
	}
	id := ParseStringIDParam(c, "id")
	return p, id, id != ""
}

// respond writes a session result or maps its error.
func (h *EditorHandler) respond(c *gin.Context) func(*services.EditorSessionResponse, error) {
	return func(session *services.EditorSessionResponse, err error) {
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}
