package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
	"github.com/nasermirzaei89/threadline/contents"
)

type createPostRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Pictures []string `json:"pictures"`
	Flags    []string `json:"flags"`
}

func (h *Handler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.contentsSvc.ListPosts(r.Context())
	if err != nil {
		writeServiceError(w, r, "failed to list posts", err)

		return
	}

	res := make([]*postResponse, 0, len(posts))
	for _, post := range posts {
		res = append(res, h.newPostResponse(r.Context(), post))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.contentsSvc.GetPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		writeServiceError(w, r, "failed to get post", err)

		return
	}

	writeJSON(w, r, http.StatusOK, h.newPostResponse(r.Context(), post))
}

func (h *Handler) HandleCreatePost() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createPostRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		userID, _ := authcontext.UserID(r.Context())

		flags := make([]contents.Flag, 0, len(req.Flags))
		for _, flag := range req.Flags {
			flags = append(flags, contents.Flag(flag))
		}

		post, err := h.contentsSvc.CreatePost(r.Context(), contents.CreatePostRequest{
			AuthorID: userID,
			Title:    req.Title,
			Content:  req.Content,
			Pictures: req.Pictures,
			Flags:    flags,
		})
		if err != nil {
			writeServiceError(w, r, "failed to create post", err)

			return
		}

		writeJSON(w, r, http.StatusCreated, h.newPostResponse(r.Context(), post))
	})

	return h.AuthenticatedOnly(hf)
}
