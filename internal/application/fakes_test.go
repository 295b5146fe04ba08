package application

import (
	"context"
	"sync"

	"shopify-embed-auth/internal/domain"
)

// stubStore is an in-memory UserSessionRepository for exercising the
// services without infrastructure.
type stubStore struct {
	mu          sync.Mutex
	sessions    map[string]*domain.Session
	byUser      map[int64]string
	deleted     []string
	userLookups int
	retrieveErr error
}

func newStubStore(seed ...*domain.Session) *stubStore {
	s := &stubStore{
		sessions: make(map[string]*domain.Session),
		byUser:   make(map[int64]string),
	}
	for _, sess := range seed {
		_ = s.Store(context.Background(), sess)
	}
	return s
}

func (s *stubStore) Store(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	if session.IsOnline && session.UserID() != 0 {
		s.byUser[session.UserID()] = session.ID
	}
	return nil
}

func (s *stubStore) Retrieve(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retrieveErr != nil {
		return nil, s.retrieveErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *stubStore) RetrieveByUserID(_ context.Context, userID int64) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userLookups++
	if s.retrieveErr != nil {
		return nil, s.retrieveErr
	}
	id, ok := s.byUser[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *stubStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	if session.IsOnline && session.UserID() != 0 {
		delete(s.byUser, session.UserID())
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// plainStore hides the user index to exercise composite-key fallback
type plainStore struct {
	inner *stubStore
}

func (p *plainStore) Store(ctx context.Context, session *domain.Session) error {
	return p.inner.Store(ctx, session)
}

func (p *plainStore) Retrieve(ctx context.Context, id string) (*domain.Session, error) {
	return p.inner.Retrieve(ctx, id)
}

func (p *plainStore) Delete(ctx context.Context, id string) error {
	return p.inner.Delete(ctx, id)
}

// stubDecoder returns canned claims or a canned error
type stubDecoder struct {
	claims *domain.SessionTokenClaims
	err    error
}

func (d *stubDecoder) Decode(_ context.Context, _ string) (*domain.SessionTokenClaims, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.claims, nil
}

// stubPlatform reports a fixed scope configuration and records
// activation pairing
type stubPlatform struct {
	scopes      []string
	activations int
	releases    int
}

func (p *stubPlatform) Activate(ctx context.Context, session *domain.Session) (context.Context, error) {
	p.activations++
	return domain.WithActiveSession(ctx, session), nil
}

func (p *stubPlatform) Deactivate(_ context.Context) {
	p.releases++
}

func (p *stubPlatform) ConfiguredScopes() []string {
	return p.scopes
}
