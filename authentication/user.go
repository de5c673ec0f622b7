package authentication

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID             string
	Username       string
	PasswordHash   string
	DisplayPicture string
	Bio            string
	Email          string
	RegisteredAt   time.Time
}

type UserRepository interface {
	Insert(ctx context.Context, user *User) (err error)
	Find(ctx context.Context, userID string) (user *User, err error)
	FindByUsername(ctx context.Context, username string) (user *User, err error)
	ListUsernames(ctx context.Context) (usernames []string, err error)
	Update(ctx context.Context, user *User) (err error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) (err error)
	Delete(ctx context.Context, userID string) (err error)
}

type UserNotFoundError struct {
	ID string
}

func (err UserNotFoundError) Error() string {
	return fmt.Sprintf("user with id %q not found", err.ID)
}

type UserByUsernameNotFoundError struct {
	Username string
}

func (err UserByUsernameNotFoundError) Error() string {
	return fmt.Sprintf("user with username %q not found", err.Username)
}

type UserAlreadyExistsError struct {
	Username string
}

func (err UserAlreadyExistsError) Error() string {
	return fmt.Sprintf("user with username %q already exists", err.Username)
}

type ValidationError struct {
	Field   string
	Message string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Message)
}

var (
	ErrCurrentUserNotFound = errors.New("current user not found")
	ErrIncorrectPassword   = errors.New("incorrect password")
)
