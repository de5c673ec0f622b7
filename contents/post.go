package contents

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Post struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string
	Pictures  []string
	Flags     []Flag
	CreatedAt time.Time
}

type Flag string

const (
	FlagMobile        Flag = "mobile"
	FlagDesktop       Flag = "desktop"
	FlagLoginRequired Flag = "login_required"
	FlagBeginner      Flag = "beginner"
	FlagUrgent        Flag = "urgent"
)

func (f Flag) IsValid() bool {
	switch f {
	case FlagMobile, FlagDesktop, FlagLoginRequired, FlagBeginner, FlagUrgent:
		return true
	default:
		return false
	}
}

func AllFlags() []Flag {
	return []Flag{FlagMobile, FlagDesktop, FlagLoginRequired, FlagBeginner, FlagUrgent}
}

type PostRepository interface {
	Insert(ctx context.Context, post *Post) (err error)
	Find(ctx context.Context, postID string) (post *Post, err error)
	List(ctx context.Context, params ListPostsParams) (posts []*Post, err error)
}

// ListPostsParams narrows a listing; a nil AuthorID lists every post.
type ListPostsParams struct {
	AuthorID *string
}

type PostNotFoundError struct {
	ID string
}

func (err PostNotFoundError) Error() string {
	return fmt.Sprintf("post with id %q not found", err.ID)
}

type ValidationError struct {
	Field   string
	Message string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Message)
}

type InvalidFlagError struct {
	Flag Flag
}

func (err InvalidFlagError) Error() string {
	allowed := make([]string, 0, len(AllFlags()))
	for _, flag := range AllFlags() {
		allowed = append(allowed, string(flag))
	}

	return fmt.Sprintf("invalid flag %q; allowed: %s", err.Flag, strings.Join(allowed, ", "))
}
