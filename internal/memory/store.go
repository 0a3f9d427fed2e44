package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotFound is returned by a Persister when nothing has been saved
// under its key yet.
var ErrNotFound = errors.New("conversation not found")

// Persister loads and saves the encoded conversation log. Implementations
// store the bytes produced by Encode verbatim.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	// Describe names the backing location for log messages.
	Describe() string
}

// PersistError wraps a persistence failure. The Store only ever logs
// these; they never reach callers.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("memory %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store is the conversation log. The in-memory slice is authoritative;
// every mutation is followed by a best-effort save of the whole log. A
// nil persister gives a memory-only store.
type Store struct {
	mu        sync.RWMutex
	turns     []Turn
	persister Persister
	logger    *slog.Logger

	// degraded is set after a failed save and cleared by the next
	// successful one, so the warning is logged once per outage.
	degraded bool
}

// NewStore creates a store and loads any previously saved log. Load
// failures are logged and leave the store empty.
func NewStore(ctx context.Context, persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		turns:     []Turn{},
		persister: persister,
		logger:    logger,
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	if s.persister == nil {
		return
	}

	data, err := s.persister.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		s.logger.Info("no saved conversation, starting fresh", "location", s.persister.Describe())
		return
	}
	if err != nil {
		s.logger.Warn("failed to load conversation, starting empty",
			"location", s.persister.Describe(),
			"error", &PersistError{Op: "load", Err: err})
		return
	}

	turns, err := Decode(data)
	if err != nil {
		s.logger.Warn("saved conversation is unreadable, starting empty",
			"location", s.persister.Describe(),
			"error", &PersistError{Op: "decode", Err: err})
		return
	}

	s.turns = turns
	s.logger.Info("conversation loaded", "location", s.persister.Describe(), "turns", len(turns))
}

// Append adds a turn to the end of the log and persists the log.
func (s *Store) Append(ctx context.Context, speaker Speaker, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, Turn{Speaker: speaker, Text: text})
	s.saveLocked(ctx)
}

// History returns a copy of the log in append order.
func (s *Store) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Clear empties the log and persists the empty state.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = []Turn{}
	s.saveLocked(ctx)
}

// Degraded reports whether the last save failed.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

func (s *Store) saveLocked(ctx context.Context) {
	if s.persister == nil {
		return
	}

	data, err := Encode(s.turns)
	if err == nil {
		err = s.persister.Save(ctx, data)
	}
	if err != nil {
		if !s.degraded {
			s.logger.Warn("failed to persist conversation, continuing in memory",
				"location", s.persister.Describe(),
				"error", &PersistError{Op: "save", Err: err})
		} else {
			s.logger.Debug("conversation still not persisted", "error", err)
		}
		s.degraded = true
		return
	}

	if s.degraded {
		s.logger.Info("conversation persistence recovered", "location", s.persister.Describe())
	}
	s.degraded = false
}
