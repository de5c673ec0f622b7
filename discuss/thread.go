package discuss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nasermirzaei89/threadline/votes"
)

// ReplyView is a reply as seen by one viewer. Author is nil when the author
// could not be resolved.
type ReplyView struct {
	*Reply
	Author    *Author
	UserVote  votes.Vote
	UpVotes   int
	DownVotes int
}

// Breadcrumb points back from a reply page to its parent. When the parent is
// not a known reply it falls back to the root post.
type Breadcrumb struct {
	IsReply bool
	Reply   *ReplyView
	PostID  string
	Post    *RootPost
}

func (svc *BaseService) ListChildren(ctx context.Context, postID string, parentID *string, viewerID *string) ([]*ReplyView, error) {
	if postID == "" {
		return nil, &ValidationError{Field: "post_id", Message: "must not be empty"}
	}

	replies, err := svc.replyRepo.List(ctx, &ListRepliesParams{
		PostID:   postID,
		ParentID: parentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}

	result := make([]*ReplyView, 0, len(replies))

	for _, reply := range replies {
		view, err := svc.buildView(ctx, reply, viewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to build reply view: %w", err)
		}

		result = append(result, view)
	}

	return result, nil
}

func (svc *BaseService) ResolveBreadcrumb(ctx context.Context, postID string, parentID *string) (*Breadcrumb, error) {
	if parentID == nil || *parentID == "" {
		return nil, nil //nolint:nilnil
	}

	parent, err := svc.replyRepo.Find(ctx, *parentID)
	if err == nil {
		view, err := svc.buildView(ctx, parent, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build parent view: %w", err)
		}

		return &Breadcrumb{IsReply: true, Reply: view, PostID: parent.PostID}, nil
	}

	var replyNotFoundErr *ReplyNotFoundError
	if !errors.As(err, &replyNotFoundErr) {
		return nil, fmt.Errorf("failed to find parent reply: %w", err)
	}

	breadcrumb := &Breadcrumb{IsReply: false, PostID: postID}

	if postID == "" {
		return breadcrumb, nil
	}

	post, err := svc.posts.FindPost(ctx, postID)
	if err != nil {
		var postNotFoundErr *RootPostNotFoundError
		if !errors.As(err, &postNotFoundErr) {
			return nil, fmt.Errorf("failed to find root post: %w", err)
		}

		slog.WarnContext(ctx, "root post of breadcrumb not found", "postId", postID)

		return breadcrumb, nil
	}

	breadcrumb.Post = post

	return breadcrumb, nil
}

func (svc *BaseService) buildView(ctx context.Context, reply *Reply, viewerID *string) (*ReplyView, error) {
	counts := votes.Count(reply.UpVoters, reply.DownVoters)

	view := &ReplyView{
		Reply:     reply,
		UserVote:  votes.None,
		UpVotes:   counts.Up,
		DownVotes: counts.Down,
	}

	if viewerID != nil && *viewerID != "" {
		view.UserVote = votes.Effective(*viewerID, reply.UpVoters, reply.DownVoters)
	}

	author, err := svc.authors.FindAuthor(ctx, reply.AuthorID)
	if err != nil {
		var authorNotFoundErr *AuthorNotFoundError
		if !errors.As(err, &authorNotFoundErr) {
			return nil, fmt.Errorf("failed to find author: %w", err)
		}

		slog.WarnContext(ctx, "author of reply not found", "replyId", reply.ID, "authorId", reply.AuthorID)
	} else {
		view.Author = author
	}

	return view, nil
}
