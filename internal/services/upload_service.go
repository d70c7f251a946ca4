package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/editor"
	"github.com/SAP-F-2025/qpaper-service/internal/storage"
	"github.com/gabriel-vasile/mimetype"
)

const questionImagePrefix = "questions"

// Blob is a stored image read back for serving.
type Blob struct {
	Data        []byte
	ContentType string
}

type UploadService interface {
	// UploadImage stores an image and answers in the editor image tool
	// format.
	UploadImage(ctx context.Context, p *auth.Principal, file editor.File) (editor.UploadResult, error)
	Open(ctx context.Context, key string) (*Blob, error)
	// Uploader is the uploader editor sessions use for inserted images.
	Uploader() editor.Uploader
}

type uploadService struct {
	blobs    storage.BlobStore
	uploader editor.Uploader
	maxBytes int64
	logger   *ServiceLogger
}

// NewUploadService stores images in blobs. Without a blob store images are
// inlined as data URIs and Open always misses.
func NewUploadService(blobs storage.BlobStore, maxBytes int64, logger *slog.Logger) UploadService {
	if maxBytes <= 0 {
		maxBytes = editor.DefaultMaxImageBytes
	}
	var uploader editor.Uploader = editor.InlineUploader{MaxBytes: maxBytes}
	if blobs != nil {
		uploader = editor.BlobUploader{Store: blobs, KeyPrefix: questionImagePrefix, MaxBytes: maxBytes}
	}
	return NewUploadServiceWith(uploader, blobs, maxBytes, logger)
}

// NewRemoteUploadService forwards images to an external upload endpoint.
// blobs, when set, still backs Open for images stored before the switch.
func NewRemoteUploadService(endpoint, token string, blobs storage.BlobStore, maxBytes int64, logger *slog.Logger) UploadService {
	if maxBytes <= 0 {
		maxBytes = editor.DefaultMaxImageBytes
	}
	uploader := editor.NewHTTPUploader(endpoint, token)
	uploader.MaxBytes = maxBytes
	return NewUploadServiceWith(uploader, blobs, maxBytes, logger)
}

func NewUploadServiceWith(uploader editor.Uploader, blobs storage.BlobStore, maxBytes int64, logger *slog.Logger) UploadService {
	if maxBytes <= 0 {
		maxBytes = editor.DefaultMaxImageBytes
	}
	return &uploadService{
		blobs:    blobs,
		uploader: uploader,
		maxBytes: maxBytes,
		logger:   NewServiceLogger(logger, LogConfig{Service: "upload", Component: "service"}),
	}
}

func (s *uploadService) Uploader() editor.Uploader {
	return s.uploader
}

func (s *uploadService) UploadImage(ctx context.Context, p *auth.Principal, file editor.File) (_ editor.UploadResult, err error) {
	op := s.logger.WithOperation(ctx, "upload_image", principalID(p))
	defer func() { op.LogResult(file.Name, "image", err) }()

	if p == nil {
		return editor.UploadResult{}, ErrUnauthorized
	}
	return s.uploader.Upload(ctx, file)
}

func (s *uploadService) Open(ctx context.Context, key string) (*Blob, error) {
	key = strings.TrimPrefix(key, "/")
	if s.blobs == nil || key == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return &Blob{Data: data, ContentType: mimetype.Detect(data).String()}, nil
}
