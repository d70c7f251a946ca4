package editor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
	"github.com/SAP-F-2025/qpaper-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, "\x89PNG\r\n\x1a\n")
	return data
}

// plainSurface has no granular clear and records calls.
type plainSurface struct {
	mu             sync.Mutex
	doc            document.Document
	loads          int
	destroyErr     error
	panicOnDestroy bool
}

func (s *plainSurface) Load(_ context.Context, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	s.doc = doc.Clone()
	return nil
}

func (s *plainSurface) Snapshot(_ context.Context) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone(), nil
}

func (s *plainSurface) Destroy(_ context.Context) error {
	if s.panicOnDestroy {
		panic("destroy exploded")
	}
	return s.destroyErr
}

type blockingUploader struct {
	release chan struct{}
	started chan struct{}
}

func (u *blockingUploader) Upload(ctx context.Context, _ File) (UploadResult, error) {
	close(u.started)
	<-u.release
	return succeeded("/uploads/late.png"), nil
}

func TestSession_SaveBeforeBind(t *testing.T) {
	s := NewSession("s1")

	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
	assert.ErrorIs(t, s.Clear(context.Background()), apperrors.ErrNotReady)
}

func TestSession_BindIsSingle(t *testing.T) {
	ctx := context.Background()
	s := NewSession("s1")
	first := &plainSurface{}
	second := &plainSurface{}

	require.NoError(t, s.Bind(ctx, first, document.CreateDefault()))
	require.NoError(t, s.Bind(ctx, second, document.Document{}))

	assert.Equal(t, 1, first.loads)
	assert.Equal(t, 0, second.loads)

	saved, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Len(t, saved.Blocks, 2)
}

func TestSession_SaveReflectsSurface(t *testing.T) {
	ctx := context.Background()
	surface := NewMemorySurface()
	s := NewSession("s1")
	require.NoError(t, s.Bind(ctx, surface, document.CreateDefault()))

	edited := document.CreateDefault()
	edited.AppendBlock(document.NewParagraph("typed by the author"))
	require.NoError(t, surface.Load(ctx, edited))

	saved, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, edited, saved)
	assert.Equal(t, edited, s.Document())
}

func TestSession_ClearPrefersGranular(t *testing.T) {
	ctx := context.Background()
	reloads := 0
	s := NewSession("s1", WithReloadFallback(func(context.Context) error {
		reloads++
		return nil
	}))
	surface := NewMemorySurface()
	require.NoError(t, s.Bind(ctx, surface, document.CreateDefault()))

	require.NoError(t, s.Clear(ctx))
	saved, err := s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved.IsEmpty())
	assert.Equal(t, 0, reloads)
}

func TestSession_ClearFallback(t *testing.T) {
	ctx := context.Background()

	s := NewSession("s1")
	require.NoError(t, s.Bind(ctx, &plainSurface{}, document.CreateDefault()))
	assert.ErrorIs(t, s.Clear(ctx), ErrNoClearFallback)

	reloads := 0
	s = NewSession("s2", WithReloadFallback(func(context.Context) error {
		reloads++
		return nil
	}))
	require.NoError(t, s.Bind(ctx, &plainSurface{}, document.CreateDefault()))
	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 1, reloads)
	assert.True(t, s.Document().IsEmpty())
}

func TestSession_UnbindLogsDestroyFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		surface *plainSurface
	}{
		{name: "destroy error", surface: &plainSurface{destroyErr: errors.New("boom")}},
		{name: "destroy panic", surface: &plainSurface{panicOnDestroy: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("s1")
			require.NoError(t, s.Bind(ctx, tt.surface, document.CreateDefault()))

			select {
			case <-s.Unbind(ctx):
			case <-time.After(time.Second):
				t.Fatal("destroy did not finish")
			}
			assert.False(t, s.Bound())

			_, err := s.Save(ctx)
			assert.ErrorIs(t, err, ErrNotReady)
		})
	}

	// Unbinding an unbound session is a no-op.
	<-NewSession("idle").Unbind(ctx)
}

func TestSession_GuardDropsLateUpload(t *testing.T) {
	ctx := context.Background()
	up := &blockingUploader{release: make(chan struct{}), started: make(chan struct{})}
	s := NewSession("s1", WithUploader(up))
	surface := NewMemorySurface()
	require.NoError(t, s.Bind(ctx, surface, document.CreateDefault()))

	errc := make(chan error, 1)
	go func() {
		_, err := s.InsertImage(ctx, 0, File{Data: pngBytes(64)}, "")
		errc <- err
	}()

	<-up.started
	<-s.Unbind(ctx)
	close(up.release)

	assert.ErrorIs(t, <-errc, ErrNotReady)
	assert.True(t, surface.Destroyed())
	assert.False(t, s.Guard(func() { t.Fatal("guard ran after unbind") }))
}

func TestSession_InsertImage(t *testing.T) {
	ctx := context.Background()
	s := NewSession("s1", WithUploader(InlineUploader{}))
	require.NoError(t, s.Bind(ctx, NewMemorySurface(), document.CreateDefault()))

	doc, err := s.InsertImage(ctx, 1, File{Name: "graph.png", Data: pngBytes(2048)}, "Graph")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, document.KindImage, doc.Blocks[1].Kind)
	assert.True(t, strings.HasPrefix(doc.Blocks[1].Image.URL, "data:image/png;base64,"))
	assert.Equal(t, "Graph", doc.Blocks[1].Image.Caption)

	_, err = s.InsertImage(ctx, 9, File{Data: pngBytes(16)}, "")
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
}

func TestInlineUploader(t *testing.T) {
	res, err := InlineUploader{}.Upload(context.Background(), File{Data: pngBytes(2048)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.NotEmpty(t, res.File.URL)

	_, err = InlineUploader{}.Upload(context.Background(), File{Data: []byte("just some text")})
	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)

	_, err = InlineUploader{MaxBytes: 10}.Upload(context.Background(), File{Data: pngBytes(64)})
	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
	_, err = InlineUploader{}.Upload(context.Background(), File{Name: "x.svg", Data: svg})
	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)
}

func TestIsRasterImage(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"IMAGE/GIF", true},
		{"image/webp; charset=binary", true},
		{"image/svg+xml", false},
		{"image/x-icon", false},
		{"text/html; charset=utf-8", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRasterImage(tt.contentType))
		})
	}
}

func TestBlobUploader(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir(), "http://localhost/api/v1/uploads")
	require.NoError(t, err)

	res, err := BlobUploader{Store: store, KeyPrefix: "questions"}.Upload(context.Background(), File{Data: pngBytes(2048)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.File.URL, "http://localhost/api/v1/uploads/questions/"))
	assert.True(t, strings.HasSuffix(res.File.URL, ".png"))
}

func TestHTTPUploader(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			f, _, err := r.FormFile(UploadFieldName)
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(f)
			assert.Len(t, data, 2048)

			_ = json.NewEncoder(w).Encode(map[string]any{"success": 1, "file": map[string]string{"url": "/uploads/x.png"}})
		}))
		defer srv.Close()

		res, err := NewHTTPUploader(srv.URL, "tok").Upload(context.Background(), File{Name: "x.png", Data: pngBytes(2048)})
		require.NoError(t, err)
		assert.Equal(t, "/uploads/x.png", res.File.URL)
	})

	t.Run("non-2xx surfaces server message", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_, _ = w.Write([]byte(`{"error":"file too large"}`))
		}))
		defer srv.Close()

		_, err := NewHTTPUploader(srv.URL, "").Upload(context.Background(), File{Data: pngBytes(128)})
		assert.ErrorIs(t, err, apperrors.ErrUploadFailed)
		assert.Contains(t, err.Error(), "file too large")
		assert.Equal(t, 1, calls)
	})

	t.Run("transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		_, err := NewHTTPUploader(srv.URL, "").Upload(context.Background(), File{Data: pngBytes(128)})
		assert.ErrorIs(t, err, apperrors.ErrUploadFailed)
	})
}
