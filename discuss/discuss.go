package discuss

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/threadline/votes"
)

const ServiceName = "github.com/nasermirzaei89/threadline/discuss"

type Service interface {
	CreateReply(ctx context.Context, req CreateReplyRequest) (reply *Reply, err error)
	GetReply(ctx context.Context, replyID string, viewerID *string) (reply *ReplyView, err error)
	ListChildren(ctx context.Context, postID string, parentID *string, viewerID *string) (replies []*ReplyView, err error)
	ResolveBreadcrumb(ctx context.Context, postID string, parentID *string) (breadcrumb *Breadcrumb, err error)
	ToggleVote(ctx context.Context, replyID string, userID string, requested votes.Vote) (result *VoteResult, err error)
}

type BaseService struct {
	replyRepo ReplyRepository
	authors   AuthorDirectory
	posts     PostDirectory
	now       func() time.Time
}

var _ Service = (*BaseService)(nil)

func NewService(replyRepo ReplyRepository, authors AuthorDirectory, posts PostDirectory) *BaseService {
	return &BaseService{
		replyRepo: replyRepo,
		authors:   authors,
		posts:     posts,
		now:       time.Now,
	}
}

type CreateReplyRequest struct {
	PostID   string
	AuthorID string
	Content  string
	// ParentID is empty for a reply to the post itself.
	ParentID string
}

func (svc *BaseService) CreateReply(ctx context.Context, req CreateReplyRequest) (*Reply, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, &ValidationError{Field: "content", Message: "must not be empty"}
	}

	if strings.TrimSpace(req.PostID) == "" {
		return nil, &ValidationError{Field: "post_id", Message: "must not be empty"}
	}

	if req.AuthorID == "" {
		return nil, &ValidationError{Field: "author_id", Message: "must not be empty"}
	}

	// parent_id is taken as given; it is not checked against existing replies.
	var parentID *string
	if req.ParentID != "" {
		parentID = &req.ParentID
	}

	reply := &Reply{
		ID:         uuid.NewString(),
		PostID:     req.PostID,
		ParentID:   parentID,
		AuthorID:   req.AuthorID,
		Content:    content,
		UpVoters:   []string{},
		DownVoters: []string{},
		CreatedAt:  svc.now().UTC(),
	}

	err := svc.replyRepo.Insert(ctx, reply)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reply: %w", err)
	}

	return reply, nil
}

func (svc *BaseService) GetReply(ctx context.Context, replyID string, viewerID *string) (*ReplyView, error) {
	reply, err := svc.replyRepo.Find(ctx, replyID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reply: %w", err)
	}

	view, err := svc.buildView(ctx, reply, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to build reply view: %w", err)
	}

	return view, nil
}
