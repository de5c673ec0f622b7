// Package profiles serves public user profiles and lets users edit their own.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nasermirzaei89/threadline/authentication"
	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
	"github.com/nasermirzaei89/threadline/contents"
)

const ServiceName = "github.com/nasermirzaei89/threadline/profiles"

type Service interface {
	GetProfile(ctx context.Context, username string) (profile *Profile, err error)
	EditProfile(ctx context.Context, req EditProfileRequest) (profile *Profile, err error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (err error)
}

// Profile is a user as others see it. Email is only set for the owner.
type Profile struct {
	UserID         string
	Username       string
	Bio            string
	DisplayPicture string
	Email          string
	IsOwner        bool
	RegisteredAt   time.Time
	Posts          []*contents.Post
}

type Users interface {
	GetUser(ctx context.Context, userID string) (*authentication.User, error)
	GetUserByUsername(ctx context.Context, username string) (*authentication.User, error)
	UpdateProfile(ctx context.Context, req authentication.UpdateProfileRequest) (*authentication.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type Posts interface {
	ListPostsByAuthor(ctx context.Context, authorID string) ([]*contents.Post, error)
}

type BaseService struct {
	users Users
	posts Posts
}

var _ Service = (*BaseService)(nil)

func NewService(users Users, posts Posts) *BaseService {
	return &BaseService{
		users: users,
		posts: posts,
	}
}

type ProfileNotFoundError struct {
	Username string
	UserID   string
}

func (err ProfileNotFoundError) Error() string {
	if err.Username != "" {
		return fmt.Sprintf("profile of %q not found", err.Username)
	}

	return fmt.Sprintf("profile of user with id %q not found", err.UserID)
}

func newProfile(ctx context.Context, user *authentication.User) *Profile {
	profile := &Profile{
		UserID:         user.ID,
		Username:       user.Username,
		Bio:            user.Bio,
		DisplayPicture: user.DisplayPicture,
		RegisteredAt:   user.RegisteredAt,
	}

	if viewerID, ok := authcontext.UserID(ctx); ok && viewerID == user.ID {
		profile.IsOwner = true
		profile.Email = user.Email
	}

	return profile
}

// GetProfile answers the profile of username with its posts, newest first. A
// failing post listing degrades to no posts.
func (svc *BaseService) GetProfile(ctx context.Context, username string) (*Profile, error) {
	user, err := svc.users.GetUserByUsername(ctx, username)
	if err != nil {
		var notFoundErr *authentication.UserByUsernameNotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, &ProfileNotFoundError{Username: username}
		}

		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	profile := newProfile(ctx, user)

	profile.Posts, err = svc.posts.ListPostsByAuthor(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list profile posts", "userId", user.ID, "error", err)

		profile.Posts = []*contents.Post{}
	}

	return profile, nil
}

type EditProfileRequest struct {
	UserID         string
	Username       *string
	Bio            *string
	Email          *string
	DisplayPicture *string
}

func (svc *BaseService) EditProfile(ctx context.Context, req EditProfileRequest) (*Profile, error) {
	user, err := svc.users.UpdateProfile(ctx, authentication.UpdateProfileRequest{
		UserID:         req.UserID,
		Username:       req.Username,
		Bio:            req.Bio,
		Email:          req.Email,
		DisplayPicture: req.DisplayPicture,
	})
	if err != nil {
		var notFoundErr *authentication.UserNotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, &ProfileNotFoundError{UserID: req.UserID}
		}

		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return newProfile(ctx, user), nil
}

type ChangePasswordRequest struct {
	UserID      string
	OldPassword string
	NewPassword string
}

func (svc *BaseService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	err := svc.users.ChangePassword(ctx, req.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		var notFoundErr *authentication.UserNotFoundError
		if errors.As(err, &notFoundErr) {
			return &ProfileNotFoundError{UserID: req.UserID}
		}

		return fmt.Errorf("failed to change password: %w", err)
	}

	return nil
}
