// Package directory resolves the author and root post data that reply threads
// display, backed by the authentication and contents services.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/nasermirzaei89/threadline/authentication"
	"github.com/nasermirzaei89/threadline/contents"
	"github.com/nasermirzaei89/threadline/discuss"
)

type UserGetter interface {
	GetUser(ctx context.Context, userID string) (user *authentication.User, err error)
}

type Authors struct {
	users UserGetter
}

var _ discuss.AuthorDirectory = (*Authors)(nil)

func NewAuthors(users UserGetter) *Authors {
	return &Authors{users: users}
}

func (d *Authors) FindAuthor(ctx context.Context, userID string) (*discuss.Author, error) {
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		var userNotFoundErr *authentication.UserNotFoundError
		if errors.As(err, &userNotFoundErr) {
			return nil, &discuss.AuthorNotFoundError{ID: userID}
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &discuss.Author{
		ID:             user.ID,
		Name:           user.Username,
		DisplayPicture: user.DisplayPicture,
	}, nil
}

// Posts reads posts without an authorization check; callers of the thread
// resolver have been authorized already.
type Posts struct {
	posts contents.Service
}

var _ discuss.PostDirectory = (*Posts)(nil)

func NewPosts(posts contents.Service) *Posts {
	return &Posts{posts: posts}
}

func (d *Posts) FindPost(ctx context.Context, postID string) (*discuss.RootPost, error) {
	post, err := d.posts.GetPost(ctx, postID)
	if err != nil {
		var postNotFoundErr *contents.PostNotFoundError
		if errors.As(err, &postNotFoundErr) {
			return nil, &discuss.RootPostNotFoundError{ID: postID}
		}

		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return &discuss.RootPost{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Title:     post.Title,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
	}, nil
}
