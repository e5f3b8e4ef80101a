package session

import "context"

type ctxKey string

const sessionKey ctxKey = "vlb.session_id"

// WithSessionID stores the session id in context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionIDFromContext extracts the session id if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(sessionKey)
	if val == nil {
		return "", false
	}
	sessionID, ok := val.(string)
	return sessionID, ok && sessionID != ""
}
