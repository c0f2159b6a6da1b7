package session

import (
	"context"
	"sync"
	"time"

	"github.com/dkrieger7/cookieauth/internal"
)

// MemoryStore is an in-process Store for tests and single-node deployments.
// A janitor goroutine sweeps expired records; Get and Touch also evict
// lazily, so a record is never returned after its expiry even if the sweep
// has not run.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	bySubj   map[string]map[string]struct{}

	cfg    Config
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// NewMemoryStore creates an in-memory Store. sweepInterval <= 0 disables the
// background sweep; lazy eviction still applies.
func NewMemoryStore(cfg Config, sweepInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*Session),
		bySubj:   make(map[string]map[string]struct{}),
		cfg:      cfg.normalize(),
		done:     make(chan struct{}),
	}

	if sweepInterval > 0 {
		store.ticker = time.NewTicker(sweepInterval)
		go store.sweepLoop()
	}

	return store
}

func (m *MemoryStore) Create(ctx context.Context, subjectID string) (*Session, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	for {
		sid, err := internal.NewSessionID()
		if err != nil {
			return nil, err
		}
		id = sid.String()
		if _, exists := m.sessions[id]; !exists {
			break
		}
	}

	sess := &Session{
		ID:        id,
		SubjectID: subjectID,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(m.cfg.initialTTL()).Unix(),
	}
	m.sessions[id] = sess
	if m.bySubj[subjectID] == nil {
		m.bySubj[subjectID] = make(map[string]struct{})
	}
	m.bySubj[subjectID][id] = struct{}{}

	out := *sess
	return &out, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	if sess.Expired(now) {
		m.evict(sess)
		return nil, ErrNotFound
	}

	out := *sess
	return &out, nil
}

func (m *MemoryStore) Touch(ctx context.Context, id string) (*Session, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	// An expired session is gone; touch must never revive it.
	if sess.Expired(now) {
		m.evict(sess)
		return nil, ErrNotFound
	}

	next := now.Add(m.cfg.Window).Unix()
	hardCap := time.Unix(sess.CreatedAt, 0).Add(m.cfg.MaxLifetime).Unix()
	if next > hardCap {
		next = hardCap
	}
	// Concurrent touches are serialized by the lock; last writer wins.
	sess.ExpiresAt = next

	out := *sess
	return &out, nil
}

func (m *MemoryStore) Revoke(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, exists := m.sessions[id]; exists {
		m.evict(sess)
	}
	return nil
}

func (m *MemoryStore) RevokeAllForSubject(ctx context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.bySubj[subjectID] {
		delete(m.sessions, id)
	}
	delete(m.bySubj, subjectID)
	return nil
}

func (m *MemoryStore) ActiveSessionCount(ctx context.Context, subjectID string) (int, error) {
	ids, err := m.ActiveSessionIDs(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ActiveSessionIDs returns live session ids for a subject. Expired records
// still waiting on the sweep are evicted here instead of being counted.
func (m *MemoryStore) ActiveSessionIDs(ctx context.Context, subjectID string) ([]string, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.bySubj[subjectID]))
	for id := range m.bySubj[subjectID] {
		sess, exists := m.sessions[id]
		if !exists {
			continue
		}
		if sess.Expired(now) {
			m.evict(sess)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.done)
	})
	return nil
}

// evict removes a session and its subject index entry. Caller holds the lock.
func (m *MemoryStore) evict(sess *Session) {
	delete(m.sessions, sess.ID)
	if set := m.bySubj[sess.SubjectID]; set != nil {
		delete(set, sess.ID)
		if len(set) == 0 {
			delete(m.bySubj, sess.SubjectID)
		}
	}
}

func (m *MemoryStore) sweepExpired() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sess := range m.sessions {
		if sess.Expired(now) {
			m.evict(sess)
		}
	}
}

func (m *MemoryStore) sweepLoop() {
	for {
		select {
		case <-m.ticker.C:
			m.sweepExpired()
		case <-m.done:
			return
		}
	}
}
