package pledge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Step is the session's position in the sign-up workflow.
type Step string

const (
	StepAddress  Step = "address"  // awaiting address search / confirmation
	StepDistrict Step = "district" // district resolved, awaiting name + email
	StepCode     Step = "code"     // verification code sent, awaiting entry
	StepComplete Step = "complete" // signature committed
)

// Session is the per-signer workflow state. One instance per in-progress
// signer, discarded on completion or explicit restart; never shared
// between sessions.
type Session struct {
	ID        string    `json:"id"`
	Step      Step      `json:"step"`
	CreatedAt time.Time `json:"createdAt"`

	Candidates []string `json:"candidates,omitempty"`

	District string `json:"district,omitempty"`
	Rep      string `json:"rep,omitempty"`

	PendingCode  string `json:"pendingCode,omitempty"`
	PendingName  string `json:"pendingName,omitempty"`
	PendingEmail string `json:"pendingEmail,omitempty"`
}

var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

const sessionPrefix = "pledge:session:"

// RedisSessions keeps sessions in Redis with a TTL, refreshed on save.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

func (r *RedisSessions) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, sessionPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisSessions) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionPrefix+s.ID, raw, r.ttl).Err()
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionPrefix+id).Err()
}

// MemorySessions is an in-process SessionStore for tests.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]Session)}
}

func (m *MemorySessions) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := s
	return &out, nil
}

func (m *MemorySessions) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemorySessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
