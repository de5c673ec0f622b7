package web

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/nasermirzaei89/threadline/authentication"
	"github.com/nasermirzaei89/threadline/contents"
	"github.com/nasermirzaei89/threadline/discuss"
)

type userResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	DisplayPicture string    `json:"display_picture,omitempty"`
	RegisteredAt   time.Time `json:"registered_at"`
}

func newUserResponse(user *authentication.User) *userResponse {
	return &userResponse{
		ID:             user.ID,
		Username:       user.Username,
		DisplayPicture: user.DisplayPicture,
		RegisteredAt:   user.RegisteredAt,
	}
}

type authorResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DisplayPicture string `json:"display_picture,omitempty"`
}

type postResponse struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html"`
	Pictures    []string  `json:"pictures"`
	Flags       []string  `json:"flags"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) newPostResponse(ctx context.Context, post *contents.Post) *postResponse {
	flags := make([]string, 0, len(post.Flags))
	for _, flag := range post.Flags {
		flags = append(flags, string(flag))
	}

	pictures := post.Pictures
	if pictures == nil {
		pictures = []string{}
	}

	return &postResponse{
		ID:          post.ID,
		AuthorID:    post.AuthorID,
		Title:       post.Title,
		Content:     post.Content,
		ContentHTML: h.renderMarkdown(ctx, post.Content),
		Pictures:    pictures,
		Flags:       flags,
		CreatedAt:   post.CreatedAt,
	}
}

type replyResponse struct {
	ID          string          `json:"id"`
	PostID      string          `json:"post_id"`
	ParentID    *string         `json:"parent_id"`
	Author      *authorResponse `json:"author"`
	Content     string          `json:"content"`
	ContentHTML string          `json:"content_html"`
	UserVote    int             `json:"user_vote"`
	UpVotes     int             `json:"up_votes"`
	DownVotes   int             `json:"down_votes"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (h *Handler) newReplyResponse(ctx context.Context, view *discuss.ReplyView) *replyResponse {
	res := &replyResponse{
		ID:          view.ID,
		PostID:      view.PostID,
		ParentID:    view.ParentID,
		Content:     view.Content,
		ContentHTML: h.renderMarkdown(ctx, view.Content),
		UserVote:    int(view.UserVote),
		UpVotes:     view.UpVotes,
		DownVotes:   view.DownVotes,
		CreatedAt:   view.CreatedAt,
	}

	if view.Author != nil {
		res.Author = &authorResponse{
			ID:             view.Author.ID,
			Name:           view.Author.Name,
			DisplayPicture: view.Author.DisplayPicture,
		}
	}

	return res
}

type rootPostResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type breadcrumbResponse struct {
	IsReply bool              `json:"is_reply"`
	PostID  string            `json:"post_id"`
	Reply   *replyResponse    `json:"reply,omitempty"`
	Post    *rootPostResponse `json:"post,omitempty"`
}

func (h *Handler) newBreadcrumbResponse(ctx context.Context, breadcrumb *discuss.Breadcrumb) *breadcrumbResponse {
	res := &breadcrumbResponse{
		IsReply: breadcrumb.IsReply,
		PostID:  breadcrumb.PostID,
	}

	if breadcrumb.Reply != nil {
		res.Reply = h.newReplyResponse(ctx, breadcrumb.Reply)
	}

	if breadcrumb.Post != nil {
		res.Post = &rootPostResponse{
			ID:        breadcrumb.Post.ID,
			AuthorID:  breadcrumb.Post.AuthorID,
			Title:     breadcrumb.Post.Title,
			CreatedAt: breadcrumb.Post.CreatedAt,
		}
	}

	return res
}

type voteResponse struct {
	UserVote  int `json:"user_vote"`
	UpVotes   int `json:"up_votes"`
	DownVotes int `json:"down_votes"`
}

// renderMarkdown returns an empty string when rendering fails; the raw
// content is always sent alongside.
func (h *Handler) renderMarkdown(ctx context.Context, source string) string {
	var buf bytes.Buffer

	err := h.markdown.Convert([]byte(source), &buf)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render markdown", "error", err)

		return ""
	}

	return buf.String()
}
