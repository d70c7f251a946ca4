package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/SAP-F-2025/qpaper-service/internal/editor"
	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	BaseHandler
	uploadService services.UploadService
}

func NewUploadHandler(uploadService services.UploadService, logger utils.Logger) *UploadHandler {
	return &UploadHandler{
		BaseHandler:   NewBaseHandler(logger),
		uploadService: uploadService,
	}
}

// UploadImage stores an image for the editor
// @Summary Upload image
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param upload formData file true "Image"
// @Success 200 {object} editor.UploadResult
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /uploads/images [post]
func (h *UploadHandler) UploadImage(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}

	file, ok := readFormImage(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Uploading image", "filename", file.Name, "size", len(file.Data))

	result, err := h.uploadService.UploadImage(c.Request.Context(), p, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ServeBlob streams a stored upload. Image tags cannot send a bearer token,
// so this route is public; keys are random. Only raster images are served
// inline. Anything else is sent as an opaque attachment.
// @Summary Serve upload
// @Tags uploads
// @Param key path string true "Object key"
// @Success 200 {file} file
// @Router /uploads/{key} [get]
func (h *UploadHandler) ServeBlob(c *gin.Context) {
	blob, err := h.uploadService.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	contentType := blob.ContentType
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	if !editor.IsRasterImage(contentType) {
		contentType = "application/octet-stream"
		c.Header("Content-Disposition", "attachment")
	}
	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.Data(http.StatusOK, contentType, blob.Data)
}

// readFormImage reads the posted image into memory or answers 400.
func readFormImage(c *gin.Context) (editor.File, bool) {
	header, err := c.FormFile(editor.UploadFieldName)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Missing image", Details: err.Error()})
		return editor.File{}, false
	}
	data, err := readPart(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Unreadable image", Details: err.Error()})
		return editor.File{}, false
	}
	return editor.File{Name: header.Filename, Data: data}, true
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
