package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"c4arch/internal/metrics"
	"c4arch/workspace"
)

// Factory builds an empty workspace for a new or restored session.
type Factory func() *workspace.Workspace

// lockEntry holds the per-session mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// liveSession is a workspace held in memory and when it was last used.
type liveSession struct {
	ws   *workspace.Workspace
	used time.Time
}

// Manager owns the live workspaces. Persistence for one session is
// serialised by a per-session lock; remote calls are never made under it.
type Manager struct {
	store   Store
	factory Factory
	logger  *slog.Logger
	metrics *metrics.Metrics
	idle    time.Duration
	now     func() time.Time

	mu    sync.Mutex
	live  map[string]*liveSession
	locks map[string]*lockEntry
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics counts live sessions.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithIdleTimeout drops live workspaces unused for d when EvictIdle runs.
// Their state stays in the store. Zero keeps them forever.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.idle = d
	}
}

// WithClock sets the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager persisting to store.
func NewManager(store Store, factory Factory, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		factory: factory,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		live:    make(map[string]*liveSession),
		locks:   make(map[string]*lockEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[sessionID]
	if !ok {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and drops unused entries.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[sessionID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock runs fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()
	return fn(ctx)
}

// Create starts a new session and persists its empty state.
func (m *Manager) Create(ctx context.Context) (string, *workspace.Workspace, error) {
	id := uuid.NewString()
	ws := m.factory()

	st := ws.State()
	if err := m.store.Save(ctx, id, &st); err != nil {
		return "", nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	m.mu.Lock()
	m.live[id] = &liveSession{ws: ws, used: m.now()}
	m.mu.Unlock()
	m.metrics.SessionOpened()

	m.logger.Info("session created", "session_id", id)
	return id, ws, nil
}

// Get returns the live workspace for id, restoring it from the store when
// it is not live.
func (m *Manager) Get(ctx context.Context, sessionID string) (*workspace.Workspace, error) {
	if ws := m.lookup(sessionID); ws != nil {
		return ws, nil
	}

	var ws *workspace.Workspace
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		// Another caller may have restored it while we waited.
		if ws = m.lookup(sessionID); ws != nil {
			return nil
		}

		st, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		restored := m.factory()
		if err := restored.Restore(*st); err != nil {
			return fmt.Errorf("failed to restore session %s: %w", sessionID, err)
		}

		m.mu.Lock()
		m.live[sessionID] = &liveSession{ws: restored, used: m.now()}
		m.mu.Unlock()
		m.metrics.SessionOpened()
		m.logger.Info("session restored", "session_id", sessionID)

		ws = restored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// lookup returns the live workspace for id and marks it used.
func (m *Manager) lookup(sessionID string) *workspace.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.live[sessionID]
	if !ok {
		return nil
	}
	ls.used = m.now()
	return ls.ws
}

// Update runs fn on the session's workspace and persists the result. State
// is persisted even when fn fails, since failures still change notices and
// the transcript.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(context.Context, *workspace.Workspace) error) error {
	ws, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	fnErr := fn(ctx, ws)
	if err := m.persist(ctx, sessionID, ws); err != nil {
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// Persist saves the current state of a live session.
func (m *Manager) Persist(ctx context.Context, sessionID string) error {
	ws := m.lookup(sessionID)
	if ws == nil {
		return ErrSessionNotFound
	}
	return m.persist(ctx, sessionID, ws)
}

func (m *Manager) persist(ctx context.Context, sessionID string, ws *workspace.Workspace) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		st := ws.State()
		if err := m.store.Save(ctx, sessionID, &st); err != nil {
			m.logger.Error("failed to persist session", "session_id", sessionID, "error", err)
			return fmt.Errorf("failed to persist session %s: %w", sessionID, err)
		}
		return nil
	})
}

// Delete removes a session from memory and from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.mu.Lock()
		_, wasLive := m.live[sessionID]
		delete(m.live, sessionID)
		m.mu.Unlock()

		if !wasLive {
			if _, err := m.store.Load(ctx, sessionID); err != nil {
				return err
			}
		}
		if err := m.store.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
		}
		if wasLive {
			m.metrics.SessionClosed()
		}
		m.logger.Info("session deleted", "session_id", sessionID)
		return nil
	})
}

// EvictIdle drops live workspaces unused for longer than the idle timeout
// and returns how many were dropped. Their last state was persisted by the
// update that used them, so a later Get restores them unless the store
// expired them first.
func (m *Manager) EvictIdle(ctx context.Context) int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	var idle []string
	for id, ls := range m.live {
		if ls.used.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.Unlock()

	evicted := 0
	for _, id := range idle {
		_ = m.WithLock(ctx, id, func(ctx context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			// Used again since the scan.
			if ls, ok := m.live[id]; !ok || !ls.used.Before(cutoff) {
				return nil
			}
			delete(m.live, id)
			evicted++
			return nil
		})
	}
	for range evicted {
		m.metrics.SessionClosed()
	}
	if evicted > 0 {
		m.logger.Info("evicted idle sessions", "count", evicted)
	}
	return evicted
}

// Janitor calls EvictIdle every interval until ctx is done.
func (m *Manager) Janitor(ctx context.Context, interval time.Duration) {
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

// List returns the stored session ids.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Live returns the number of sessions held in memory.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
