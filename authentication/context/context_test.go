package context_test

import (
	"context"
	"testing"

	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
	"github.com/stretchr/testify/assert"
)

func TestGetSubject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.Equal(t, authcontext.Anonymous, authcontext.GetSubject(ctx))
	assert.Equal(t, "user-1", authcontext.GetSubject(authcontext.WithSubject(ctx, "user-1")))
	assert.Equal(t, authcontext.Anonymous, authcontext.GetSubject(authcontext.WithSubject(ctx, "")))
}

func TestUserID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := authcontext.UserID(ctx)
	assert.False(t, ok)

	_, ok = authcontext.UserID(authcontext.WithServiceSubject(ctx, "worker"))
	assert.False(t, ok)

	userID, ok := authcontext.UserID(authcontext.WithSubject(ctx, "user-1"))
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
}

func TestSessionID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := authcontext.GetSessionID(ctx)
	assert.False(t, ok)

	sessionID, ok := authcontext.GetSessionID(authcontext.WithSessionID(ctx, "session-1"))
	assert.True(t, ok)
	assert.Equal(t, "session-1", sessionID)
}
