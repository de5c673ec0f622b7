package authorization

import (
	"context"
	"fmt"

	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
)

// Client checks access on behalf of the subject carried by the context.
type Client struct {
	authzSvc *Service
}

func NewClient(authzSvc *Service) *Client {
	return &Client{
		authzSvc: authzSvc,
	}
}

// CheckAccess returns *AccessDeniedError when the subject of ctx may not
// perform action on object within domain.
func (c *Client) CheckAccess(ctx context.Context, domain, object, action string) error {
	subject := authcontext.GetSubject(ctx)

	res, err := c.authzSvc.CheckAccess(ctx, CheckAccessRequest{
		Subject: subject,
		Domain:  domain,
		Object:  object,
		Action:  action,
	})
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}

	if !res.Allowed {
		return &AccessDeniedError{
			Subject: subject,
			Domain:  domain,
			Object:  object,
			Action:  action,
		}
	}

	return nil
}

func (c *Client) AddToGroup(ctx context.Context, sub string, groups ...string) error {
	err := c.authzSvc.AddToGroup(ctx, sub, groups...)
	if err != nil {
		return fmt.Errorf("failed to add to group: %w", err)
	}

	return nil
}

// IsAnonymousDenial reports whether err is an access denial for a caller
// without a user subject.
func IsAnonymousDenial(err *AccessDeniedError) bool {
	return err != nil && err.Subject == authcontext.Anonymous
}
