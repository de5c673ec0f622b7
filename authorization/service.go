// Package authorization decides whether a subject may perform an action on an
// object within a service domain. Policies live in an AuthorizationProvider.
package authorization

import (
	"context"
	"errors"
	"fmt"
)

type Service struct {
	authzProvider AuthorizationProvider
}

type AuthorizationProvider interface {
	CheckAccess(ctx context.Context, req CheckAccessRequest) (res *CheckAccessResponse, err error)
	AddToGroup(ctx context.Context, sub string, groups ...string) (err error)
}

var ErrNilProvider = errors.New("authorization provider is nil")

func NewService(authzProvider AuthorizationProvider) (*Service, error) {
	if authzProvider == nil {
		return nil, ErrNilProvider
	}

	return &Service{
		authzProvider: authzProvider,
	}, nil
}

type CheckAccessRequest struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

type CheckAccessResponse struct {
	Allowed bool
}

type AccessDeniedError struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

func (err AccessDeniedError) Error() string {
	if err.Object != "" {
		return fmt.Sprintf(
			"subject %q may not %s %q in %s",
			err.Subject,
			err.Action,
			err.Object,
			err.Domain,
		)
	}

	return fmt.Sprintf("subject %q may not %s in %s", err.Subject, err.Action, err.Domain)
}

func (svc *Service) CheckAccess(ctx context.Context, req CheckAccessRequest) (*CheckAccessResponse, error) {
	res, err := svc.authzProvider.CheckAccess(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to check access: %w", err)
	}

	return res, nil
}

// AddToGroup makes sub a member of every group, inheriting their policies.
func (svc *Service) AddToGroup(ctx context.Context, sub string, groups ...string) error {
	err := svc.authzProvider.AddToGroup(ctx, sub, groups...)
	if err != nil {
		return fmt.Errorf("failed to add subject to groups: %w", err)
	}

	return nil
}
