package repository

import (
	"context"
	"sync"
	"time"

	"shopify-embed-auth/internal/domain"
)

const memoryCleanupInterval = 10 * time.Minute

// MemorySessionRepository implements UserSessionRepository with
// process-local state. It backs tests and single-instance deployments;
// anything running more than one replica uses the Redis or Mongo store.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	byUser   map[int64]string
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemorySessionRepository creates a new in-memory session repository
// and starts a janitor that reaps expired online sessions
func NewMemorySessionRepository() *MemorySessionRepository {
	r := &MemorySessionRepository{
		sessions: make(map[string]*domain.Session),
		byUser:   make(map[int64]string),
		stop:     make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Store saves or replaces a session and its user index entry in one
// critical section
func (r *MemorySessionRepository) Store(_ context.Context, session *domain.Session) error {
	record := session.Clone()
	record.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[record.ID] = record
	if record.IsOnline && record.UserID() != 0 {
		r.byUser[record.UserID()] = record.ID
	}
	return nil
}

// Retrieve returns a copy of the stored session, or
// domain.ErrSessionNotFound
func (r *MemorySessionRepository) Retrieve(_ context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// RetrieveByUserID returns a copy of the user's online session, or
// domain.ErrSessionNotFound
func (r *MemorySessionRepository) RetrieveByUserID(_ context.Context, userID int64) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Delete removes the session and its user index entry
func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	if session.IsOnline && session.UserID() != 0 {
		delete(r.byUser, session.UserID())
	}
	return nil
}

// Close stops the cleanup janitor
func (r *MemorySessionRepository) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

func (r *MemorySessionRepository) cleanupLoop() {
	ticker := time.NewTicker(memoryCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.removeExpired()
		case <-r.stop:
			return
		}
	}
}

func (r *MemorySessionRepository) removeExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.Expired() {
			delete(r.sessions, id)
			if session.IsOnline && session.UserID() != 0 {
				delete(r.byUser, session.UserID())
			}
		}
	}
}
