package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusflow/support-agent/internal/llm"
	"github.com/nimbusflow/support-agent/internal/log"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// StoreConfig configures the session store.
type StoreConfig struct {
	// TTL is the inactivity window after which a session is evicted.
	TTL time.Duration

	// MaxMessages caps the retained history per session. Oldest messages
	// are dropped in pairs so the transcript keeps alternating roles.
	MaxMessages int

	// SweepInterval is how often the janitor scans for expired sessions.
	SweepInterval time.Duration
}

// Store holds sessions in memory. All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry

	ttl         time.Duration
	maxMessages int
	sweepEvery  time.Duration
	logger      log.Logger
}

// entry pairs a session with its turn lock. The turn lock is held across an
// entire agent turn, not just map access, so concurrent calls on the same
// session execute one at a time.
type entry struct {
	turnMu  sync.Mutex
	session Session
}

// NewStore creates a session store.
func NewStore(cfg StoreConfig, logger log.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 40
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Store{
		sessions:    make(map[uuid.UUID]*entry),
		ttl:         cfg.TTL,
		maxMessages: cfg.MaxMessages,
		sweepEvery:  cfg.SweepInterval,
		logger:      logger,
	}
}

// Create allocates a new empty session and returns its ID.
func (s *Store) Create() uuid.UUID {
	id := uuid.New()
	now := time.Now()

	s.mu.Lock()
	s.sessions[id] = &entry{session: Session{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
	}}
	s.mu.Unlock()

	return id
}

// GetOrCreate returns the session with the given ID, creating it if absent.
// A zero ID always creates a fresh session.
func (s *Store) GetOrCreate(id uuid.UUID) Session {
	if id == uuid.Nil {
		id = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		now := time.Now()
		e = &entry{session: Session{ID: id, CreatedAt: now, LastActiveAt: now}}
		s.sessions[id] = e
	}
	return snapshot(&e.session)
}

// Get returns the session with the given ID.
func (s *Store) Get(id uuid.UUID) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return snapshot(&e.session), nil
}

// History returns the session's transcript, oldest first.
func (s *Store) History(id uuid.UUID) ([]llm.Message, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// Lock acquires the session's turn lock, creating the session if absent.
// The returned function releases the lock. Holding the turn lock across a
// full agent turn is what serializes concurrent requests on one session.
func (s *Store) Lock(id uuid.UUID) (unlock func()) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	now := time.Now()
	if !ok {
		e = &entry{session: Session{ID: id, CreatedAt: now, LastActiveAt: now}}
		s.sessions[id] = e
	}
	e.session.LastActiveAt = now
	s.mu.Unlock()

	e.turnMu.Lock()
	return e.turnMu.Unlock
}

// AppendTurn appends a completed user/assistant exchange atomically and
// trims history to the configured cap.
func (s *Store) AppendTurn(id uuid.UUID, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	e.session.Messages = append(e.session.Messages, turn.User, turn.Assistant)
	if over := len(e.session.Messages) - s.maxMessages; over > 0 {
		// Drop in pairs to keep user/assistant alternation intact.
		if over%2 != 0 {
			over++
		}
		e.session.Messages = append([]llm.Message(nil), e.session.Messages[over:]...)
	}
	e.session.LastActiveAt = time.Now()
	return nil
}

// SetCustomerName records the customer's name for the session. An empty
// name is ignored; a later introduction overwrites an earlier one.
func (s *Store) SetCustomerName(id uuid.UUID, name string) error {
	if name == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.session.CustomerName = name
	e.session.LastActiveAt = time.Now()
	return nil
}

// CustomerName returns the recorded customer name, if any.
func (s *Store) CustomerName(id uuid.UUID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.sessions[id]; ok {
		return e.session.CustomerName
	}
	return ""
}

// Clear empties the session's history while keeping the session alive.
// The customer name is cleared too; a fresh conversation starts from zero.
func (s *Store) Clear(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.session.Messages = nil
	e.session.CustomerName = ""
	e.session.LastActiveAt = time.Now()
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run evicts expired sessions until ctx is canceled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(time.Now()); n > 0 {
				s.logger.Debug("evicted expired sessions", "count", n)
			}
		}
	}
}

// sweep removes sessions idle longer than the TTL and returns the count.
func (s *Store) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		if now.Sub(e.session.LastActiveAt) <= s.ttl {
			continue
		}
		// A held turn lock means a turn is in flight; never evict mid-turn.
		if !e.turnMu.TryLock() {
			continue
		}
		e.turnMu.Unlock()
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}

// snapshot copies a session so callers cannot mutate store state.
func snapshot(sess *Session) Session {
	out := *sess
	out.Messages = append([]llm.Message(nil), sess.Messages...)
	return out
}
