package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
	"github.com/SAP-F-2025/qpaper-service/internal/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// UploadFieldName is the multipart field carrying the image, on both the
// posting and the receiving side.
const UploadFieldName = "upload"

const DefaultMaxImageBytes = 5 << 20

type File struct {
	Name string
	Data []byte
}

// UploadResult mirrors the image tool response: {"success":1,"file":{"url":...}}.
type UploadResult struct {
	Success int          `json:"success"`
	File    UploadedFile `json:"file"`
}

type UploadedFile struct {
	URL string `json:"url"`
}

func succeeded(url string) UploadResult {
	return UploadResult{Success: 1, File: UploadedFile{URL: url}}
}

type Uploader interface {
	Upload(ctx context.Context, file File) (UploadResult, error)
}

// rasterImageTypes are the accepted upload types. Vector formats such as
// SVG can carry script and are refused.
var rasterImageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// IsRasterImage reports whether contentType is one of the accepted image
// types. Parameters after ';' are ignored.
func IsRasterImage(contentType string) bool {
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, t := range rasterImageTypes {
		if strings.EqualFold(mediaType, t) {
			return true
		}
	}
	return false
}

// detectImage sniffs the payload and rejects anything that is not a raster
// image.
func detectImage(file File, maxBytes int64) (*mimetype.MIME, error) {
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", apperrors.ErrUploadFailed)
	}
	if maxBytes > 0 && int64(len(file.Data)) > maxBytes {
		return nil, fmt.Errorf("%w: file is %d bytes, limit is %d", apperrors.ErrUploadFailed, len(file.Data), maxBytes)
	}
	mt := mimetype.Detect(file.Data)
	if !IsRasterImage(mt.String()) {
		return nil, fmt.Errorf("%w: %s is not an accepted image type", apperrors.ErrUploadFailed, mt.String())
	}
	return mt, nil
}

// InlineUploader encodes the image as a data URI. No network is involved.
type InlineUploader struct {
	MaxBytes int64
}

func (u InlineUploader) Upload(_ context.Context, file File) (UploadResult, error) {
	mt, err := detectImage(file, u.MaxBytes)
	if err != nil {
		return UploadResult{}, err
	}
	mediaType := strings.SplitN(mt.String(), ";", 2)[0]
	return succeeded("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(file.Data)), nil
}

// BlobUploader stores the image in a BlobStore under a random key.
type BlobUploader struct {
	Store     storage.BlobStore
	KeyPrefix string
	MaxBytes  int64
}

func (u BlobUploader) Upload(ctx context.Context, file File) (UploadResult, error) {
	mt, err := detectImage(file, u.MaxBytes)
	if err != nil {
		return UploadResult{}, err
	}
	key := path.Join(u.KeyPrefix, uuid.NewString()+mt.Extension())
	key, err = u.Store.Put(ctx, key, mt.String(), bytes.NewReader(file.Data))
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: store: %v", apperrors.ErrUploadFailed, err)
	}
	return succeeded(u.Store.PublicURL(key)), nil
}

// HTTPUploader posts the image to an external upload endpoint as multipart
// form data. The bearer token is supplied by the caller, never read from
// ambient state.
type HTTPUploader struct {
	Endpoint string
	Token    string
	Client   *http.Client
	MaxBytes int64
}

func NewHTTPUploader(endpoint, token string) *HTTPUploader {
	return &HTTPUploader{
		Endpoint: endpoint,
		Token:    token,
		Client:   &http.Client{Timeout: 30 * time.Second},
		MaxBytes: DefaultMaxImageBytes,
	}
}

func (u *HTTPUploader) Upload(ctx context.Context, file File) (UploadResult, error) {
	if _, err := detectImage(file, u.MaxBytes); err != nil {
		return UploadResult{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	name := file.Name
	if name == "" {
		name = "image"
	}
	part, err := mw.CreateFormFile(UploadFieldName, name)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: build form: %v", apperrors.ErrUploadFailed, err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return UploadResult{}, fmt.Errorf("%w: build form: %v", apperrors.ErrUploadFailed, err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("%w: build form: %v", apperrors.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, &body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.Token)
	}

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: read response: %v", apperrors.ErrUploadFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UploadResult{}, fmt.Errorf("%w: status %d: %s", apperrors.ErrUploadFailed, resp.StatusCode, serverMessage(raw))
	}

	var res UploadResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return UploadResult{}, fmt.Errorf("%w: decode response: %v", apperrors.ErrUploadFailed, err)
	}
	if res.Success != 1 || res.File.URL == "" {
		return UploadResult{}, fmt.Errorf("%w: endpoint reported failure: %s", apperrors.ErrUploadFailed, serverMessage(raw))
	}
	return res, nil
}

// serverMessage extracts a human readable message from an error body.
func serverMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
