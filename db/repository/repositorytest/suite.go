// Package repositorytest holds behaviour checks shared by every database the
// repositories run on.
package repositorytest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/nasermirzaei89/threadline/authentication"
	"github.com/nasermirzaei89/threadline/contents"
	"github.com/nasermirzaei89/threadline/db/repository"
	"github.com/nasermirzaei89/threadline/discuss"
	"github.com/nasermirzaei89/threadline/votes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes all repository checks against a migrated, empty database.
func Run(t *testing.T, db *sql.DB, placeholder sq.PlaceholderFormat) {
	t.Helper()

	t.Run("users", func(t *testing.T) { testUsers(t, db, placeholder) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, db, placeholder) })
	t.Run("posts", func(t *testing.T) { testPosts(t, db, placeholder) })
	t.Run("replies", func(t *testing.T) { testReplies(t, db, placeholder) })
	t.Run("voters", func(t *testing.T) { testVoters(t, db, placeholder) })
	t.Run("concurrent appends", func(t *testing.T) { testConcurrentAppends(t, db, placeholder) })
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newUser(t *testing.T, repo *repository.UserRepository) *authentication.User {
	t.Helper()

	user := &authentication.User{
		ID:           uuid.NewString(),
		Username:     "user_" + uuid.NewString()[:8],
		PasswordHash: "hash",
		RegisteredAt: now(),
	}

	err := repo.Insert(context.Background(), user)
	require.NoError(t, err)

	return user
}

func testUsers(t *testing.T, db *sql.DB, placeholder sq.PlaceholderFormat) {
	ctx := context.Background()
	repo := repository.NewUserRepository(db, placeholder)

	user := newUser(t, repo)

	found, err := repo.Find(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, found.Username)
	assert.True(t, user.RegisteredAt.Equal(found.RegisteredAt))

	found, err = repo.FindByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	duplicate := *user
	duplicate.ID = uuid.NewString()

	err = repo.Insert(ctx, &duplicate)
	alreadyExistsErr := &authentication.UserAlreadyExistsError{}
	require.ErrorAs(t, err, &alreadyExistsErr)

	_, err = repo.Find(ctx, "missing")
	userNotFoundErr := &authentication.UserNotFoundError{}
	require.ErrorAs(t, err, &userNotFoundErr)

	_, err = repo.FindByUsername(ctx, "missing")
	byUsernameErr := &authentication.UserByUsernameNotFoundError{}
	require.ErrorAs(t, err, &byUsernameErr)

	usernames, err := repo.ListUsernames(ctx)
	require.NoError(t, err)
	assert.Contains(t, usernames, user.Username)

	user.DisplayPicture = "pictures/me.png"
	user.Bio = "hello there"
	user.Email = "me@example.com"

	err = repo.Update(ctx, user)
	require.NoError(t, err)

	found, err = repo.Find(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "pictures/me.png", found.DisplayPicture)
	assert.Equal(t, "hello there", found.Bio)
	assert.Equal(t, "me@example.com", found.Email)

	other := newUser(t, repo)
	other.Username = user.Username

	err = repo.Update(ctx, other)
	require.ErrorAs(t, err, &alreadyExistsErr)

	err = repo.Update(ctx, &authentication.User{ID: "missing", Username: "nobody_here"})
	require.ErrorAs(t, err, &userNotFoundErr)

	err = repo.UpdatePasswordHash(ctx, user.ID, "new-hash")
	require.NoError(t, err)

	found, err = repo.Find(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", found.PasswordHash)

	err = repo.UpdatePasswordHash(ctx, "missing", "x")
	require.ErrorAs(t, err, &userNotFoundErr)

	err = repo.Delete(ctx, other.ID)
	require.NoError(t, err)

	_, err = repo.Find(ctx, other.ID)
	require.ErrorAs(t, err, &userNotFoundErr)
}

func testSessions(t *testing.T, db *sql.DB, placeholder sq.PlaceholderFormat) {
	ctx := context.Background()
	user := newUser(t, repository.NewUserRepository(db, placeholder))
	repo := repository.NewSessionRepository(db, placeholder)

	live := &authentication.Session{ID: uuid.NewString(), UserID: user.ID, CreatedAt: now(), ExpiresAt: now().Add(time.Hour)}
	expired := &authentication.Session{ID: uuid.NewString(), UserID: user.ID, CreatedAt: now().Add(-2 * time.Hour), ExpiresAt: now().Add(-time.Hour)}

	require.NoError(t, repo.Insert(ctx, live))
	require.NoError(t, repo.Insert(ctx, expired))

	found, err := repo.Find(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)
	assert.True(t, live.ExpiresAt.Equal(found.ExpiresAt))

	deleted, err := repo.DeleteExpired(ctx, now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	notFoundErr := &authentication.SessionNotFoundError{}

	_, err = repo.Find(ctx, expired.ID)
	require.ErrorAs(t, err, &notFoundErr)

	require.NoError(t, repo.Delete(ctx, live.ID))

	err = repo.Delete(ctx, live.ID)
	require.ErrorAs(t, err, &notFoundErr)
}

func testPosts(t *testing.T, db *sql.DB, placeholder sq.PlaceholderFormat) {
	ctx := context.Background()
	repo := repository.NewPostRepository(db, placeholder)

	older := &contents.Post{
		ID:        uuid.NewString(),
		AuthorID:  "u1",
		Title:     "older",
		Content:   "content",
		CreatedAt: now().Add(-time.Minute),
	}
	newer := &contents.Post{
		ID:        uuid.NewString(),
		AuthorID:  "u1",
		Title:     "newer",
		Content:   "content",
		Pictures:  []string{"pictures/a.png", "pictures/b.png"},
		Flags:     []contents.Flag{contents.FlagUrgent},
		CreatedAt: now(),
	}

	require.NoError(t, repo.Insert(ctx, older))
	require.NoError(t, repo.Insert(ctx, newer))

	found, err := repo.Find(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.Title, found.Title)
	assert.Equal(t, newer.Pictures, found.Pictures)
	assert.Equal(t, newer.Flags, found.Flags)

	found, err = repo.Find(ctx, older.ID)
	require.NoError(t, err)
	assert.Nil(t, found.Pictures)
	assert.Nil(t, found.Flags)

	_, err = repo.Find(ctx, "missing")
	notFoundErr := &contents.PostNotFoundError{}
	require.ErrorAs(t, err, &notFoundErr)

	posts, err := repo.List(ctx, contents.ListPostsParams{})
	require.NoError(t, err)

	positions := map[string]int{}
	for i, post := range posts {
		positions[post.ID] = i
	}

	assert.Less(t, positions[newer.ID], positions[older.ID])

	authorID := uuid.NewString()
	own := &contents.Post{ID: uuid.NewString(), AuthorID: authorID, Title: "own", Content: "content", CreatedAt: now()}
	require.NoError(t, repo.Insert(ctx, own))

	byAuthor, err := repo.List(ctx, contents.ListPostsParams{AuthorID: &authorID})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, own.ID, byAuthor[0].ID)
}

func insertReply(t *testing.T, repo *repository.ReplyRepository, postID string, parentID *string, createdAt time.Time) *discuss.Reply {
	t.Helper()

	reply := &discuss.Reply{
		ID:         uuid.NewString(),
		PostID:     postID,
		ParentID:   parentID,
		AuthorID:   "u1",
		Content:    "content",
		UpVoters:   []string{},
		DownVoters: []string{},
		CreatedAt:  createdAt,
	}

	err := repo.Insert(context.Background(), reply)
	require.NoError(t, err)

	return reply
}

func ids(replies []*discuss.Reply) []string {
	result := make([]string, 0, len(replies))
	for _, reply := range replies {
		result = append(result, reply.ID)
	}

	return result
}

func testReplies(t *testing.T, db *sql.DB, placeholder sq.PlaceholderFormat) {
	ctx := context.Background()
	repo := repository.NewReplyRepository(db, placeholder)

	postID := uuid.NewString()
	base := now()

	second := insertReply(t, repo, postID, nil, base.Add(time.Second))
	first := insertReply(t, repo, postID, nil, base)
	child := insertReply(t, repo, postID, &first.ID, base.Add(2*time.Second))
	insertReply(t, repo, uuid.NewString(), nil, base)

	found, err := repo.Find(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, found.ParentID)
	assert.Equal(t, first.ID, *found.ParentID)
	assert.Empty(t, found.UpVoters)
	assert.Empty(t, found.DownVoters)
	assert.True(t, child.CreatedAt.Equal(found.CreatedAt))

	topLevel, err := repo.List(ctx, &discuss.ListRepliesParams{PostID: postID})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, ids(topLevel))

	children, err := repo.List(ctx, &discuss.ListRepliesParams{PostID: postID, ParentID: &first.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{child.ID}, ids(children))

	none, err := repo.List(ctx, &discuss.ListRepliesParams{PostID: postID, ParentID: &second.ID})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.Find(ctx, "missing")
	notFoundErr := &discuss.ReplyNotFoundError{}
	require.ErrorAs(t, err, &notFoundErr)
}

func testVoters(t *testing.T, db *sql.DB, placeholder sq.PlaceholderFormat) {
	ctx := context.Background()
	repo := repository.NewReplyRepository(db, placeholder)

	reply := insertReply(t, repo, uuid.NewString(), nil, now())

	require.NoError(t, repo.AppendVoter(ctx, reply.ID, votes.DirectionUp, "a"))
	require.NoError(t, repo.AppendVoter(ctx, reply.ID, votes.DirectionUp, "b"))
	require.NoError(t, repo.AppendVoter(ctx, reply.ID, votes.DirectionUp, "a"))
	require.NoError(t, repo.AppendVoter(ctx, reply.ID, votes.DirectionDown, "c"))

	found, err := repo.Find(ctx, reply.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, found.UpVoters)
	assert.Equal(t, []string{"c"}, found.DownVoters)

	require.NoError(t, repo.ReplaceVoters(ctx, reply.ID, votes.DirectionUp, []string{"b"}))

	found, err = repo.Find(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, found.UpVoters)
	assert.Equal(t, []string{"c"}, found.DownVoters)

	require.NoError(t, repo.ReplaceVoters(ctx, reply.ID, votes.DirectionDown, nil))

	found, err = repo.Find(ctx, reply.ID)
	require.NoError(t, err)
	assert.Empty(t, found.DownVoters)

	listed, err := repo.List(ctx, &discuss.ListRepliesParams{PostID: reply.PostID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, []string{"b"}, listed[0].UpVoters)

	err = repo.AppendVoter(ctx, reply.ID, votes.Direction("sideways"), "a")
	require.Error(t, err)
}

func testConcurrentAppends(t *testing.T, db *sql.DB, placeholder sq.PlaceholderFormat) {
	ctx := context.Background()
	repo := repository.NewReplyRepository(db, placeholder)
	svc := discuss.NewService(repo, nopAuthors{}, nopPosts{})

	reply := insertReply(t, repo, uuid.NewString(), nil, now())

	const voters = 20

	var wg sync.WaitGroup

	for i := range voters {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.ToggleVote(ctx, reply.ID, fmt.Sprintf("voter-%d", i), votes.Up)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	found, err := repo.Find(ctx, reply.ID)
	require.NoError(t, err)
	assert.Len(t, found.UpVoters, voters)
}

type nopAuthors struct{}

func (nopAuthors) FindAuthor(_ context.Context, userID string) (*discuss.Author, error) {
	return nil, &discuss.AuthorNotFoundError{ID: userID}
}

type nopPosts struct{}

func (nopPosts) FindPost(_ context.Context, postID string) (*discuss.RootPost, error) {
	return nil, &discuss.RootPostNotFoundError{ID: postID}
}
