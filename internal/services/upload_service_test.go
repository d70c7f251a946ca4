package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SAP-F-2025/qpaper-service/internal/editor"
	"github.com/SAP-F-2025/qpaper-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, "\x89PNG\r\n\x1a\n")
	return data
}

func TestUploadService_BlobStore(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewFSStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	svc := NewUploadService(store, 1024, testLogger)
	p := newFixture(t).faculty

	res, err := svc.UploadImage(ctx, p, editor.File{Name: "fig.png", Data: pngBytes(64)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	require.True(t, strings.HasPrefix(res.File.URL, "/uploads/questions/"))
	assert.True(t, strings.HasSuffix(res.File.URL, ".png"))

	blob, err := svc.Open(ctx, strings.TrimPrefix(res.File.URL, "/uploads/"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.ContentType)
	assert.Len(t, blob.Data, 64)

	_, err = svc.Open(ctx, "questions/missing.png")
	assert.True(t, IsNotFound(err))

	_, err = svc.UploadImage(ctx, p, editor.File{Name: "big.png", Data: pngBytes(2048)})
	assert.True(t, IsUpstream(err))

	_, err = svc.UploadImage(ctx, p, editor.File{Name: "notes.txt", Data: []byte("plain text")})
	assert.True(t, IsUpstream(err))

	_, err = svc.UploadImage(ctx, nil, editor.File{Name: "fig.png", Data: pngBytes(64)})
	assert.True(t, IsUnauthorized(err))
}

func TestUploadService_Inline(t *testing.T) {
	svc := NewUploadService(nil, 0, testLogger)

	res, err := svc.UploadImage(context.Background(), newFixture(t).faculty, editor.File{Data: pngBytes(16)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.File.URL, "data:image/png;base64,"))

	_, err = svc.Open(context.Background(), "questions/a.png")
	assert.True(t, IsNotFound(err))
}

func TestUploadService_Remote(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if _, _, err := r.FormFile(editor.UploadFieldName); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(editor.UploadResult{Success: 1, File: editor.UploadedFile{URL: "https://media.example/q.png"}})
	}))
	defer srv.Close()

	svc := NewRemoteUploadService(srv.URL, "service-token", nil, 1024, testLogger)
	p := newFixture(t).faculty

	res, err := svc.UploadImage(context.Background(), p, editor.File{Name: "q.png", Data: pngBytes(64)})
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/q.png", res.File.URL)
	assert.Equal(t, "Bearer service-token", gotAuth)

	_, err = svc.UploadImage(context.Background(), p, editor.File{Name: "big.png", Data: pngBytes(2048)})
	assert.True(t, IsUpstream(err))

	_, err = svc.Open(context.Background(), "questions/q.png")
	assert.True(t, IsNotFound(err))
}
