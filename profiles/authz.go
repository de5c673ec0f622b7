package profiles

import (
	"context"
	"fmt"

	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
	"github.com/nasermirzaei89/threadline/authorization"
)

const (
	ActionGetProfile     = "getProfile"
	ActionEditProfile    = "editProfile"
	ActionChangePassword = "changePassword"
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

func (mw *AuthorizationMiddleware) GetProfile(ctx context.Context, username string) (*Profile, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, username, ActionGetProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	profile, err := mw.next.GetProfile(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return profile, nil
}

func (mw *AuthorizationMiddleware) EditProfile(ctx context.Context, req EditProfileRequest) (*Profile, error) {
	err := mw.checkOwner(ctx, req.UserID, ActionEditProfile)
	if err != nil {
		return nil, err
	}

	profile, err := mw.next.EditProfile(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return profile, nil
}

func (mw *AuthorizationMiddleware) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	err := mw.checkOwner(ctx, req.UserID, ActionChangePassword)
	if err != nil {
		return err
	}

	err = mw.next.ChangePassword(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to call next method: %w", err)
	}

	return nil
}

// checkOwner lets a subject act only on its own profile.
func (mw *AuthorizationMiddleware) checkOwner(ctx context.Context, userID, action string) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, userID, action)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	subject := authcontext.GetSubject(ctx)
	if subject != userID {
		return fmt.Errorf("failed to check authorization: %w", &authorization.AccessDeniedError{
			Subject: subject,
			Domain:  ServiceName,
			Object:  userID,
			Action:  action,
		})
	}

	return nil
}
