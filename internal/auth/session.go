package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	dom "qrstudio/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	sessionTTL       = 24 * time.Hour
)

// SessionStore maps opaque session ids to the identity that logged in.
type SessionStore interface {
	Create(ctx context.Context, id dom.Identity) (string, error)
	// Get returns false when the session is unknown or expired.
	Get(ctx context.Context, sessionID string) (dom.Identity, bool, error)
	Delete(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

// Store manages sessions in Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore returns a new session store.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = sessionTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Create stores a new session and returns its ID.
func (s *Store) Create(ctx context.Context, identity dom.Identity) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(identity)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+id, b, s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (dom.Identity, bool, error) {
	b, err := s.rdb.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return dom.Identity{}, false, nil
	}
	if err != nil {
		return dom.Identity{}, false, err
	}
	var identity dom.Identity
	if err := json.Unmarshal(b, &identity); err != nil || identity.ID == 0 {
		return dom.Identity{}, false, nil
	}
	return identity, true, nil
}

// Delete removes a session by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+id).Err()
}

// MemStore keeps sessions in process memory. Used by tests and single-node dev runs.
type MemStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memSession
}

type memSession struct {
	identity dom.Identity
	expires  time.Time
}

func NewMemStore(ttl time.Duration) *MemStore {
	if ttl <= 0 {
		ttl = sessionTTL
	}
	return &MemStore{ttl: ttl, now: time.Now, sessions: make(map[string]memSession)}
}

func (s *MemStore) TTL() time.Duration { return s.ttl }

func (s *MemStore) Create(_ context.Context, identity dom.Identity) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = memSession{identity: identity, expires: s.now().Add(s.ttl)}
	return id, nil
}

func (s *MemStore) Get(_ context.Context, sessionID string) (dom.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return dom.Identity{}, false, nil
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, sessionID)
		return dom.Identity{}, false, nil
	}
	return sess.identity, true, nil
}

func (s *MemStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}
