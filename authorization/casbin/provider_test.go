package casbin_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	fileadapter "github.com/casbin/casbin/v3/persist/file-adapter"
	"github.com/nasermirzaei89/threadline/authorization"
	"github.com/nasermirzaei89/threadline/authorization/casbin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileProvider(t *testing.T, content string) *casbin.AuthorizationProvider {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), "policy.csv")

	err := os.WriteFile(tmpFile, []byte(content), 0o600)
	require.NoError(t, err)

	provider, err := casbin.NewAuthorizationProvider(fileadapter.NewAdapter(tmpFile))
	require.NoError(t, err)

	return provider
}

func TestAuthorizationProvider_AddPolicyFromCSV(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := newFileProvider(t, "")

	policy := `# seed
g, system:anonymous, system:unauthenticated

p, system:authenticated, discuss, *, voteReply
p, system:unauthenticated, discuss, *, listReplies
`

	err := provider.AddPolicyFromCSV(ctx, policy)
	require.NoError(t, err)

	// seeding twice must not fail on existing rules
	err = provider.AddPolicyFromCSV(ctx, policy)
	require.NoError(t, err)

	err = provider.AddToGroup(ctx, "alice", "system:authenticated")
	require.NoError(t, err)

	tests := []struct {
		name     string
		subject  string
		object   string
		action   string
		expected bool
	}{
		{name: "anonymous lists", subject: "system:anonymous", object: "post-1", action: "listReplies", expected: true},
		{name: "anonymous votes", subject: "system:anonymous", object: "reply-1", action: "voteReply", expected: false},
		{name: "user votes", subject: "alice", object: "reply-1", action: "voteReply", expected: true},
		{name: "user lists", subject: "alice", object: "", action: "listReplies", expected: false},
		{name: "unknown action", subject: "alice", object: "reply-1", action: "deleteReply", expected: false},
	}

	for _, tt := range tests {
		res, err := provider.CheckAccess(ctx, authorization.CheckAccessRequest{
			Subject: tt.subject,
			Domain:  "discuss",
			Object:  tt.object,
			Action:  tt.action,
		})
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.expected, res.Allowed, tt.name)
	}
}

func TestAuthorizationProvider_AddPolicyFromCSV_Invalid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := newFileProvider(t, "")

	err := provider.AddPolicyFromCSV(ctx, "x, alice, group1\n")
	require.Error(t, err)

	unknownErr := &casbin.UnknownPolicyTypeError{}
	require.ErrorAs(t, err, unknownErr)

	err = provider.AddPolicyFromCSV(ctx, "p, alice, discuss\n")
	require.Error(t, err)

	invalidErr := &casbin.InvalidPolicyRecordError{}
	require.ErrorAs(t, err, invalidErr)
}

func TestNewAuthorizationProvider_NilAdapter(t *testing.T) {
	t.Parallel()

	_, err := casbin.NewAuthorizationProvider(nil)
	require.Error(t, err)
}
