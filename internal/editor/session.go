// Package editor binds block documents to editing surfaces and mediates
// image uploads for them.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
)

var (
	ErrNotReady = fmt.Errorf("editor: %w", apperrors.ErrNotReady)
	// ErrNoClearFallback is returned by Clear when the surface cannot clear
	// itself and no reload fallback was configured.
	ErrNoClearFallback = errors.New("editor: surface cannot clear and no reload fallback configured")
)

// ReloadFunc tears the surface down and reloads its host. Clear only uses it
// when the surface has no granular clear.
type ReloadFunc func(ctx context.Context) error

const defaultDestroyTimeout = 10 * time.Second

// Session owns one document bound to one surface. All methods are safe for
// concurrent use.
type Session struct {
	id       string
	uploader Uploader
	reload   ReloadFunc
	logger   *slog.Logger

	mu      sync.Mutex
	surface Surface
	mounted bool
	doc     document.Document
}

type Option func(*Session)

func WithUploader(u Uploader) Option {
	return func(s *Session) { s.uploader = u }
}

func WithReloadFallback(fn ReloadFunc) Option {
	return func(s *Session) { s.reload = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func NewSession(id string, opts ...Option) *Session {
	s := &Session{id: id, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", id)
	return s
}

func (s *Session) ID() string { return s.id }

// Bind loads initial into surface. Binding an already bound session does
// nothing, so repeated mounts never create a second instance.
func (s *Session) Bind(ctx context.Context, surface Surface, initial document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mounted {
		return nil
	}
	if surface == nil {
		return fmt.Errorf("bind: nil surface")
	}
	if err := surface.Load(ctx, initial); err != nil {
		return fmt.Errorf("bind: load surface: %w", err)
	}
	s.surface = surface
	s.doc = initial.Clone()
	s.mounted = true
	return nil
}

func (s *Session) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Save flushes the surface state into the bound document and returns it.
func (s *Session) Save(ctx context.Context) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return document.Document{}, ErrNotReady
	}
	snap, err := s.surface.Snapshot(ctx)
	if err != nil {
		return document.Document{}, fmt.Errorf("save: %w", err)
	}
	s.doc = snap
	return s.doc.Clone(), nil
}

// Clear empties the bound document. The reload fallback runs only when the
// surface has no Clear of its own.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return ErrNotReady
	}
	if c, ok := s.surface.(Clearer); ok {
		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		s.doc.Clear()
		return nil
	}
	if s.reload == nil {
		return ErrNoClearFallback
	}

	s.logger.Warn("Surface has no granular clear, reloading host")
	if err := s.reload(ctx); err != nil {
		return fmt.Errorf("clear: reload: %w", err)
	}
	s.doc.Clear()
	return nil
}

// Mutate applies fn to a snapshot of the surface and loads the result back.
// The surface is untouched when fn fails.
func (s *Session) Mutate(ctx context.Context, fn func(doc *document.Document) error) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return document.Document{}, ErrNotReady
	}
	return s.mutateLocked(ctx, fn)
}

func (s *Session) mutateLocked(ctx context.Context, fn func(doc *document.Document) error) (document.Document, error) {
	snap, err := s.surface.Snapshot(ctx)
	if err != nil {
		return document.Document{}, err
	}
	if err := fn(&snap); err != nil {
		return document.Document{}, err
	}
	if err := s.surface.Load(ctx, snap); err != nil {
		return document.Document{}, err
	}
	s.doc = snap
	return snap.Clone(), nil
}

// Guard runs fn only while the session is still bound. It reports whether
// fn ran. Continuations of asynchronous work go through Guard so results
// that arrive after Unbind are dropped.
func (s *Session) Guard(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return false
	}
	fn()
	return true
}

// UploadImage sends file through the configured uploader. Failures are
// returned as is; nothing is retried.
func (s *Session) UploadImage(ctx context.Context, file File) (UploadResult, error) {
	s.mu.Lock()
	uploader := s.uploader
	s.mu.Unlock()

	if uploader == nil {
		return UploadResult{}, fmt.Errorf("upload: %w: no uploader configured", apperrors.ErrUploadFailed)
	}
	res, err := uploader.Upload(ctx, file)
	if err != nil {
		return UploadResult{}, err
	}
	return res, nil
}

// InsertImage uploads file and inserts an image block at index. The lock is
// not held during the upload; if the session is unbound meanwhile the result
// is discarded and ErrNotReady is returned.
func (s *Session) InsertImage(ctx context.Context, index int, file File, caption string) (document.Document, error) {
	if !s.Bound() {
		return document.Document{}, ErrNotReady
	}
	res, err := s.UploadImage(ctx, file)
	if err != nil {
		return document.Document{}, err
	}

	var (
		doc       document.Document
		mutateErr error
	)
	ran := s.Guard(func() {
		doc, mutateErr = s.mutateLocked(ctx, func(d *document.Document) error {
			return d.InsertBlock(index, document.NewImage(res.File.URL, caption))
		})
	})
	if !ran {
		s.logger.Info("Discarding upload result for unbound session", "url", res.File.URL)
		return document.Document{}, ErrNotReady
	}
	return doc, mutateErr
}

// Unbind releases the surface. Destroy runs in the background; its error is
// logged and a panic inside it is recovered. The returned channel closes
// when destroy has finished, for callers that want to wait.
func (s *Session) Unbind(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	s.mu.Lock()
	surface := s.surface
	wasMounted := s.mounted
	s.surface = nil
	s.mounted = false
	s.mu.Unlock()

	if !wasMounted || surface == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Surface destroy panicked", "panic", r)
			}
		}()

		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultDestroyTimeout)
		defer cancel()
		if err := surface.Destroy(dctx); err != nil {
			s.logger.Error("Failed to destroy surface", "error", err)
		}
	}()
	return done
}

// Document returns the last saved or mutated state.
func (s *Session) Document() document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}
