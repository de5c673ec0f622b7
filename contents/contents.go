package contents

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const ServiceName = "github.com/nasermirzaei89/threadline/contents"

const maxPictures = 10

type Service interface {
	CreatePost(ctx context.Context, req CreatePostRequest) (post *Post, err error)
	GetPost(ctx context.Context, postID string) (post *Post, err error)
	ListPosts(ctx context.Context) (posts []*Post, err error)
	ListPostsByAuthor(ctx context.Context, authorID string) (posts []*Post, err error)
}

type BaseService struct {
	postRepo PostRepository
}

var _ Service = (*BaseService)(nil)

func NewService(postRepo PostRepository) *BaseService {
	return &BaseService{
		postRepo: postRepo,
	}
}

type CreatePostRequest struct {
	AuthorID string
	Title    string
	Content  string
	Pictures []string
	Flags    []Flag
}

func (svc *BaseService) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "must not be empty"}
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, &ValidationError{Field: "content", Message: "must not be empty"}
	}

	if req.AuthorID == "" {
		return nil, &ValidationError{Field: "author_id", Message: "must not be empty"}
	}

	if len(req.Pictures) > maxPictures {
		return nil, &ValidationError{Field: "pictures", Message: fmt.Sprintf("at most %d pictures allowed", maxPictures)}
	}

	var flags []Flag

	for _, flag := range req.Flags {
		if !flag.IsValid() {
			return nil, &InvalidFlagError{Flag: flag}
		}

		if !slices.Contains(flags, flag) {
			flags = append(flags, flag)
		}
	}

	var pictures []string

	for _, picture := range req.Pictures {
		picture = strings.TrimSpace(picture)
		if picture != "" {
			pictures = append(pictures, picture)
		}
	}

	post := &Post{
		ID:        uuid.NewString(),
		AuthorID:  req.AuthorID,
		Title:     title,
		Content:   content,
		Pictures:  pictures,
		Flags:     flags,
		CreatedAt: time.Now().UTC(),
	}

	err := svc.postRepo.Insert(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

func (svc *BaseService) GetPost(ctx context.Context, postID string) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

func (svc *BaseService) ListPosts(ctx context.Context) ([]*Post, error) {
	posts, err := svc.postRepo.List(ctx, ListPostsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

// ListPostsByAuthor answers the posts of authorID, newest first.
func (svc *BaseService) ListPostsByAuthor(ctx context.Context, authorID string) ([]*Post, error) {
	if authorID == "" {
		return nil, &ValidationError{Field: "author_id", Message: "must not be empty"}
	}

	posts, err := svc.postRepo.List(ctx, ListPostsParams{AuthorID: &authorID})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by author: %w", err)
	}

	return posts, nil
}
