package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is a process-local Store used when no Redis URL is
// configured and in tests. It mimics the sliding-TTL semantics of the
// Redis backend, including expiry on read.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	doc       []byte
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		ttl:  ttl,
		data: map[string]memoryEntry{},
		now:  time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[id]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.data, id)
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal(entry.doc, &sess); err != nil {
		delete(s.data, id)
		return nil, nil
	}
	entry.expiresAt = s.now().Add(s.ttl)
	s.data[id] = entry
	return &sess, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, sess *Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = memoryEntry{doc: doc, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.data[id]; ok {
		entry.expiresAt = s.now().Add(s.ttl)
		s.data[id] = entry
	}
	return nil
}
