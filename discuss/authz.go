package discuss

import (
	"context"
	"fmt"

	"github.com/nasermirzaei89/threadline/authorization"
	"github.com/nasermirzaei89/threadline/votes"
)

const (
	ActionCreateReply       = "createReply"
	ActionGetReply          = "getReply"
	ActionListReplies       = "listReplies"
	ActionResolveBreadcrumb = "resolveBreadcrumb"
	ActionVoteReply         = "voteReply"
)

type AuthorizationMiddleware struct {
	authzClient *authorization.Client
	next        Service
}

var _ Service = (*AuthorizationMiddleware)(nil)

func NewAuthorizationMiddleware(authzClient *authorization.Client, next Service) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{
		authzClient: authzClient,
		next:        next,
	}
}

func (mw *AuthorizationMiddleware) CreateReply(ctx context.Context, req CreateReplyRequest) (*Reply, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, req.PostID, ActionCreateReply)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	reply, err := mw.next.CreateReply(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return reply, nil
}

func (mw *AuthorizationMiddleware) GetReply(ctx context.Context, replyID string, viewerID *string) (*ReplyView, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, replyID, ActionGetReply)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	reply, err := mw.next.GetReply(ctx, replyID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return reply, nil
}

func (mw *AuthorizationMiddleware) ListChildren(
	ctx context.Context,
	postID string,
	parentID *string,
	viewerID *string,
) ([]*ReplyView, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, postID, ActionListReplies)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	replies, err := mw.next.ListChildren(ctx, postID, parentID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return replies, nil
}

func (mw *AuthorizationMiddleware) ResolveBreadcrumb(ctx context.Context, postID string, parentID *string) (*Breadcrumb, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, postID, ActionResolveBreadcrumb)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	breadcrumb, err := mw.next.ResolveBreadcrumb(ctx, postID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return breadcrumb, nil
}

func (mw *AuthorizationMiddleware) ToggleVote(
	ctx context.Context,
	replyID string,
	userID string,
	requested votes.Vote,
) (*VoteResult, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, replyID, ActionVoteReply)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	result, err := mw.next.ToggleVote(ctx, replyID, userID, requested)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return result, nil
}
