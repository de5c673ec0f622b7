package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
	"github.com/nasermirzaei89/threadline/discuss"
	"github.com/nasermirzaei89/threadline/votes"
)

type createReplyRequest struct {
	PostID   string `json:"post_id"`
	ParentID string `json:"parent_id"`
	Content  string `json:"content"`
}

type voteRequest struct {
	UserVote *int `json:"userVote"`
}

func viewerID(r *http.Request) *string {
	userID, ok := authcontext.UserID(r.Context())
	if !ok {
		return nil
	}

	return &userID
}

// parentParam reads parent_id from the query. Absent and empty both mean the
// post itself.
func parentParam(r *http.Request) *string {
	parentID := strings.TrimSpace(r.URL.Query().Get("parent_id"))
	if parentID == "" {
		return nil
	}

	return &parentID
}

func (h *Handler) HandleCreateReply() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createReplyRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		userID, _ := authcontext.UserID(r.Context())

		reply, err := h.discussSvc.CreateReply(r.Context(), discuss.CreateReplyRequest{
			PostID:   strings.TrimSpace(req.PostID),
			AuthorID: userID,
			Content:  req.Content,
			ParentID: strings.TrimSpace(req.ParentID),
		})
		if err != nil {
			writeServiceError(w, r, "failed to create reply", err)

			return
		}

		view, err := h.discussSvc.GetReply(r.Context(), reply.ID, &userID)
		if err != nil {
			writeServiceError(w, r, "failed to get created reply", err)

			return
		}

		writeJSON(w, r, http.StatusCreated, h.newReplyResponse(r.Context(), view))
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleListReplies(w http.ResponseWriter, r *http.Request) {
	postID := strings.TrimSpace(r.URL.Query().Get("post_id"))

	views, err := h.discussSvc.ListChildren(r.Context(), postID, parentParam(r), viewerID(r))
	if err != nil {
		writeServiceError(w, r, "failed to list replies", err)

		return
	}

	res := make([]*replyResponse, 0, len(views))
	for _, view := range views {
		res = append(res, h.newReplyResponse(r.Context(), view))
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) HandleGetReply(w http.ResponseWriter, r *http.Request) {
	view, err := h.discussSvc.GetReply(r.Context(), chi.URLParam(r, "replyId"), viewerID(r))
	if err != nil {
		writeServiceError(w, r, "failed to get reply", err)

		return
	}

	writeJSON(w, r, http.StatusOK, h.newReplyResponse(r.Context(), view))
}

// HandleBreadcrumb answers null when parent_id is absent.
func (h *Handler) HandleBreadcrumb(w http.ResponseWriter, r *http.Request) {
	postID := strings.TrimSpace(r.URL.Query().Get("post_id"))

	breadcrumb, err := h.discussSvc.ResolveBreadcrumb(r.Context(), postID, parentParam(r))
	if err != nil {
		writeServiceError(w, r, "failed to resolve breadcrumb", err)

		return
	}

	if breadcrumb == nil {
		writeJSON(w, r, http.StatusOK, nil)

		return
	}

	writeJSON(w, r, http.StatusOK, h.newBreadcrumbResponse(r.Context(), breadcrumb))
}

func (h *Handler) HandleVoteReply() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req voteRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if req.UserVote == nil {
			writeError(w, r, http.StatusBadRequest, APIError{
				Code:    CodeValidation,
				Message: "must be one of -1, 0, 1",
				Field:   "userVote",
			})

			return
		}

		userID, _ := authcontext.UserID(r.Context())
		requested := votes.Vote(*req.UserVote)

		result, err := h.discussSvc.ToggleVote(r.Context(), chi.URLParam(r, "replyId"), userID, requested)
		if err != nil {
			writeServiceError(w, r, "failed to toggle vote", err)

			return
		}

		h.metrics.votesTotal.WithLabelValues(requested.String()).Inc()

		writeJSON(w, r, http.StatusOK, &voteResponse{
			UserVote:  int(result.UserVote),
			UpVotes:   result.UpVotes,
			DownVotes: result.DownVotes,
		})
	})

	return h.AuthenticatedOnly(hf)
}
