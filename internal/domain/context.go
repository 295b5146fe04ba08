package domain

import "context"

type contextKey string

const sessionContextKey contextKey = "active_session"

// WithActiveSession returns a child context carrying the session the
// request is authenticated as. The value lives only as long as the
// request; nothing is stored process-wide.
func WithActiveSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// ActiveSessionFromContext returns the session the request is
// authenticated as, or nil outside an authenticated request
func ActiveSessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey).(*Session)
	return sess
}
