package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/SAP-F-2025/qpaper-service/internal/mathblock"
	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("editor session not found")

// Manager keeps the server-side editing sessions, each bound to its own
// MemorySurface.
type Manager struct {
	logger   *slog.Logger
	uploader Uploader
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*managedSession
}

type managedSession struct {
	session  *Session
	owner    Owner
	lastUsed time.Time
}

// Owner records who opened a session and which stored question, if any, it
// edits.
type Owner struct {
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId,omitempty"`
}

func NewManager(uploader Uploader, idleTTL time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:   logger.With("component", "editor_manager"),
		uploader: uploader,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*managedSession),
	}
}

// Open starts a session bound to a fresh surface holding initial. A nil
// initial starts from the default seed.
func (m *Manager) Open(ctx context.Context, initial *document.Document) (*Session, error) {
	return m.OpenFor(ctx, initial, Owner{})
}

// OpenFor is Open with ownership recorded for later lookups.
func (m *Manager) OpenFor(ctx context.Context, initial *document.Document, owner Owner) (*Session, error) {
	doc := document.CreateDefault()
	if initial != nil {
		doc = initial.Clone()
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	s := NewSession(uuid.NewString(), WithUploader(m.uploader), WithLogger(m.logger))
	if err := s.Bind(ctx, NewMemorySurface(), doc); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = &managedSession{session: s, owner: owner, lastUsed: m.now()}
	m.mu.Unlock()

	m.logger.Debug("Editor session opened", "session_id", s.ID(), "blocks", doc.Len())
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	ms.lastUsed = m.now()
	return ms.session, nil
}

// Owner returns the ownership recorded when the session was opened.
func (m *Manager) Owner(id string) (Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok {
		return Owner{}, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return ms.owner, nil
}

// SetOwner updates the ownership of an open session.
func (m *Manager) SetOwner(id string, owner Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	ms.owner = owner
	return nil
}

// Close unbinds and forgets a session. The surface is destroyed in the
// background.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	ms.session.Unbind(ctx)
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle closes sessions unused for longer than the idle TTL and returns
// how many were closed.
func (m *Manager) EvictIdle(ctx context.Context) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var stale []*Session
	for id, ms := range m.sessions {
		if ms.lastUsed.Before(cutoff) {
			stale = append(stale, ms.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Unbind(ctx)
	}
	if len(stale) > 0 {
		m.logger.Info("Evicted idle editor sessions", "count", len(stale))
	}
	return len(stale)
}

// RunEviction evicts idle sessions every interval until ctx is done.
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(ctx)
		}
	}
}

func (m *Manager) mutate(ctx context.Context, id string, fn func(*document.Document) error) (document.Document, error) {
	s, err := m.Get(id)
	if err != nil {
		return document.Document{}, err
	}
	return s.Mutate(ctx, fn)
}

func (m *Manager) InsertBlock(ctx context.Context, id string, index int, block document.Block) (document.Document, error) {
	if err := block.WithAlignment(defaultAlignment(block.Alignment)).Validate(); err != nil {
		return document.Document{}, err
	}
	return m.mutate(ctx, id, func(d *document.Document) error {
		return d.InsertBlock(index, block)
	})
}

func (m *Manager) RemoveBlock(ctx context.Context, id string, index int) (document.Document, error) {
	return m.mutate(ctx, id, func(d *document.Document) error {
		_, err := d.RemoveBlock(index)
		return err
	})
}

func (m *Manager) MoveBlock(ctx context.Context, id string, from, to int) (document.Document, error) {
	return m.mutate(ctx, id, func(d *document.Document) error {
		return d.MoveBlock(from, to)
	})
}

// EditMath runs the formula codec over the math block at index.
func (m *Manager) EditMath(ctx context.Context, id string, index int, raw string) (document.Document, error) {
	return m.mutate(ctx, id, func(d *document.Document) error {
		b, err := d.Block(index)
		if err != nil {
			return err
		}
		return mathblock.Edit(b, raw)
	})
}

func (m *Manager) SetAlignment(ctx context.Context, id string, index int, a document.Alignment) (document.Document, error) {
	if !a.Valid() {
		return document.Document{}, fmt.Errorf("invalid alignment %q", a)
	}
	return m.mutate(ctx, id, func(d *document.Document) error {
		b, err := d.Block(index)
		if err != nil {
			return err
		}
		b.Alignment = a
		return nil
	})
}

func (m *Manager) Clear(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Clear(ctx)
}

func (m *Manager) Save(ctx context.Context, id string) (document.Document, error) {
	s, err := m.Get(id)
	if err != nil {
		return document.Document{}, err
	}
	return s.Save(ctx)
}

func (m *Manager) InsertImage(ctx context.Context, id string, index int, file File, caption string) (document.Document, error) {
	s, err := m.Get(id)
	if err != nil {
		return document.Document{}, err
	}
	return s.InsertImage(ctx, index, file, caption)
}

func defaultAlignment(a document.Alignment) document.Alignment {
	if a == "" {
		return document.AlignLeft
	}
	return a
}
