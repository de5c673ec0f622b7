package discuss

import (
	"context"
	"fmt"
	"time"

	"github.com/nasermirzaei89/threadline/votes"
)

// Reply is a comment on a post or on another reply. PostID always names the
// root post; ParentID is nil for direct replies to the post.
type Reply struct {
	ID         string
	PostID     string
	ParentID   *string
	AuthorID   string
	Content    string
	UpVoters   []string
	DownVoters []string
	CreatedAt  time.Time
}

func (r *Reply) IsTopLevel() bool {
	return r.ParentID == nil
}

type ReplyRepository interface {
	Insert(ctx context.Context, reply *Reply) (err error)
	Find(ctx context.Context, replyID string) (reply *Reply, err error)
	List(ctx context.Context, params *ListRepliesParams) (replies []*Reply, err error)
	// AppendVoter adds userID to one voter list unless it is already there.
	// It must be a single atomic store operation.
	AppendVoter(ctx context.Context, replyID string, direction votes.Direction, userID string) (err error)
	// ReplaceVoters overwrites one voter list.
	ReplaceVoters(ctx context.Context, replyID string, direction votes.Direction, userIDs []string) (err error)
}

// ListRepliesParams selects the direct children of a node. A nil ParentID
// selects replies to the post itself.
type ListRepliesParams struct {
	PostID   string
	ParentID *string
}

// Author is the display data joined into replies.
type Author struct {
	ID             string
	Name           string
	DisplayPicture string
}

type AuthorDirectory interface {
	FindAuthor(ctx context.Context, userID string) (author *Author, err error)
}

// RootPost is the display data of the post a thread hangs off.
type RootPost struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string
	CreatedAt time.Time
}

type PostDirectory interface {
	FindPost(ctx context.Context, postID string) (post *RootPost, err error)
}

type ReplyNotFoundError struct {
	ID string
}

func (err ReplyNotFoundError) Error() string {
	return fmt.Sprintf("reply with id %q not found", err.ID)
}

type AuthorNotFoundError struct {
	ID string
}

func (err AuthorNotFoundError) Error() string {
	return fmt.Sprintf("author with id %q not found", err.ID)
}

type RootPostNotFoundError struct {
	ID string
}

func (err RootPostNotFoundError) Error() string {
	return fmt.Sprintf("post with id %q not found", err.ID)
}

type ValidationError struct {
	Field   string
	Message string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Message)
}

type InvalidVoteError struct {
	Vote votes.Vote
}

func (err InvalidVoteError) Error() string {
	return fmt.Sprintf("invalid vote %d; allowed: -1, 0, 1", int(err.Vote))
}
