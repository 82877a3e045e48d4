package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// MessageStore is the append-only, deduplicated, ordered conversation log.
// Every change is mirrored to the persistent store before returning.
type MessageStore struct {
	mu     sync.RWMutex
	store  *PersistentStore
	window time.Duration
	log    []domain.Message
}

// NewMessageStore creates an empty message store.
func NewMessageStore(store *PersistentStore, window time.Duration) *MessageStore {
	if window <= 0 {
		window = domain.DefaultDedupWindow
	}
	return &MessageStore{
		store:  store,
		window: window,
	}
}

// Append adds m unless it duplicates a logged message.
// It reports whether m was appended.
func (s *MessageStore) Append(m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if domain.IsDuplicate(s.log, m, s.window) {
		return false
	}
	s.log = append(s.log, m)
	s.store.SaveMessages(s.log)
	return true
}

// LoadInitial replaces the log with messages mapped from items and persists it.
func (s *MessageStore) LoadInitial(items []domain.ConversationItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = domain.Messages(items)
	s.store.SaveMessages(s.log)
}

// Restore replaces the log with the persisted conversation without writing.
func (s *MessageStore) Restore() {
	msgs := s.store.LoadMessages()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = msgs
}

// Reset empties the in-memory log. The persisted copy is left to the caller.
func (s *MessageStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

// Messages returns a copy of the log.
func (s *MessageStore) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Message, len(s.log))
	copy(out, s.log)
	return out
}

// Len returns the number of logged messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}
