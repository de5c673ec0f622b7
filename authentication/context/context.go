// Package context carries the authenticated caller through a context.Context.
package context

import (
	"context"
	"strings"
)

const (
	// Anonymous is the subject of callers without a valid token.
	Anonymous = "system:anonymous"

	Authenticated   = "system:authenticated"
	Unauthenticated = "system:unauthenticated"

	servicePrefix = "system:service:"
)

type contextKeySubject struct{}

type contextKeySessionID struct{}

func GetSubject(ctx context.Context) string {
	userID, ok := ctx.Value(contextKeySubject{}).(string)
	if !ok || userID == "" {
		return Anonymous
	}

	return userID
}

func WithSubject(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeySubject{}, userID)
}

func WithServiceSubject(ctx context.Context, serviceName string) context.Context {
	return WithSubject(ctx, servicePrefix+serviceName)
}

// UserID returns the subject when it is a real user.
func UserID(ctx context.Context) (string, bool) {
	sub := GetSubject(ctx)
	if sub == Anonymous || strings.HasPrefix(sub, servicePrefix) {
		return "", false
	}

	return sub, true
}

func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(contextKeySessionID{}).(string)
	if !ok || sessionID == "" {
		return "", false
	}

	return sessionID, true
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID{}, sessionID)
}
