package chat

import (
	"log/slog"
	"sync"

	"basegraph.app/chat/common/id"
)

// SessionIDKey is the storage key of the persisted conversation identifier.
const SessionIDKey = "chat_session_id"

// IdentityStore resolves the per-browser conversation identifier: reused
// from storage when present, generated and persisted otherwise. Storage
// failures are logged and never surface; the identifier is then only kept
// in memory.
type IdentityStore struct {
	storage Storage
	logger  *slog.Logger

	mu       sync.Mutex
	resolved bool
	current  string
	restored bool
}

func NewIdentityStore(storage Storage, logger *slog.Logger) *IdentityStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityStore{storage: storage, logger: logger}
}

// Resolve returns the identifier and whether it was read back from storage.
// Only the first call touches storage.
func (s *IdentityStore) Resolve() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.resolved {
		s.current, s.restored = s.load()
		s.resolved = true
	}
	return s.current, s.restored
}

// Current returns the resolved identifier, or "" before Resolve.
func (s *IdentityStore) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *IdentityStore) load() (string, bool) {
	stored, ok, err := s.storage.Get(SessionIDKey)
	if err != nil {
		s.logger.Warn("reading persisted chat session id failed", "error", err)
	} else if ok && stored != "" {
		return stored, true
	}

	token := id.NewToken()
	if err := s.storage.Set(SessionIDKey, token); err != nil {
		s.logger.Warn("persisting chat session id failed, keeping it in memory", "error", err)
	}
	return token, false
}
