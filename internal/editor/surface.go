package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
)

// Surface is the editing surface a session binds to. A browser editor
// instance and the server-side MemorySurface both satisfy it.
type Surface interface {
	Load(ctx context.Context, doc document.Document) error
	Snapshot(ctx context.Context) (document.Document, error)
	Destroy(ctx context.Context) error
}

// Clearer is implemented by surfaces that can drop their blocks without
// being torn down.
type Clearer interface {
	Clear(ctx context.Context) error
}

var ErrSurfaceDestroyed = errors.New("surface destroyed")

// MemorySurface holds a working copy of a document in memory.
type MemorySurface struct {
	mu        sync.Mutex
	doc       document.Document
	destroyed bool
}

func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

func (s *MemorySurface) Load(_ context.Context, doc document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	s.doc = doc.Clone()
	return nil
}

func (s *MemorySurface) Snapshot(_ context.Context) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return document.Document{}, ErrSurfaceDestroyed
	}
	return s.doc.Clone(), nil
}

func (s *MemorySurface) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	s.doc.Clear()
	return nil
}

func (s *MemorySurface) Destroy(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.doc = document.Document{}
	return nil
}

func (s *MemorySurface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}
