package service

import (
	"context"
	"errors"
)

type callerKey struct{}

type callerInfo struct {
	sessionID string
	subject   string
}

// ErrNoCallerSession reports that the request context carries no session
// identity. Access token issuance and validation both require one.
var ErrNoCallerSession = errors.New("no caller session in context")

// WithCallerSession attaches the presenting caller's session id and bound
// subject to the context. The transport layer calls this once per request.
func WithCallerSession(ctx context.Context, sessionID, subject string) context.Context {
	return context.WithValue(ctx, callerKey{}, callerInfo{sessionID: sessionID, subject: subject})
}

// ContextCaller resolves the caller identity from context values set by
// WithCallerSession. A missing session is an error; a missing subject just
// skips the subject binding check.
type ContextCaller struct{}

func (ContextCaller) SessionID(ctx context.Context) (string, error) {
	info, ok := ctx.Value(callerKey{}).(callerInfo)
	if !ok || info.sessionID == "" {
		return "", ErrNoCallerSession
	}
	return info.sessionID, nil
}

func (ContextCaller) Subject(ctx context.Context) (string, error) {
	info, ok := ctx.Value(callerKey{}).(callerInfo)
	if !ok {
		return "", nil
	}
	return info.subject, nil
}
