package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
	"github.com/nasermirzaei89/threadline/profiles"
)

type profileResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Bio            string    `json:"bio"`
	DisplayPicture string    `json:"display_picture,omitempty"`
	Email          string    `json:"email,omitempty"`
	IsOwner        bool      `json:"is_owner"`
	RegisteredAt   time.Time `json:"registered_at"`
}

func newProfileResponse(profile *profiles.Profile) *profileResponse {
	return &profileResponse{
		ID:             profile.UserID,
		Username:       profile.Username,
		Bio:            profile.Bio,
		DisplayPicture: profile.DisplayPicture,
		Email:          profile.Email,
		IsOwner:        profile.IsOwner,
		RegisteredAt:   profile.RegisteredAt,
	}
}

type profilePageResponse struct {
	*profileResponse

	Posts []*postResponse `json:"posts"`
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profilesSvc.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, r, "failed to get profile", err)

		return
	}

	posts := make([]*postResponse, 0, len(profile.Posts))
	for _, post := range profile.Posts {
		posts = append(posts, h.newPostResponse(r.Context(), post))
	}

	writeJSON(w, r, http.StatusOK, &profilePageResponse{profileResponse: newProfileResponse(profile), Posts: posts})
}

type editProfileRequest struct {
	Username       *string `json:"username"`
	Bio            *string `json:"bio"`
	Email          *string `json:"email"`
	DisplayPicture *string `json:"display_picture"`
}

func (h *Handler) HandleEditProfile() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req editProfileRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		userID, _ := authcontext.UserID(r.Context())

		profile, err := h.profilesSvc.EditProfile(r.Context(), profiles.EditProfileRequest{
			UserID:         userID,
			Username:       req.Username,
			Bio:            req.Bio,
			Email:          req.Email,
			DisplayPicture: req.DisplayPicture,
		})
		if err != nil {
			writeServiceError(w, r, "failed to edit profile", err)

			return
		}

		writeJSON(w, r, http.StatusOK, newProfileResponse(profile))
	})

	return h.AuthenticatedOnly(hf)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) HandleChangePassword() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		userID, _ := authcontext.UserID(r.Context())

		err := h.profilesSvc.ChangePassword(r.Context(), profiles.ChangePasswordRequest{
			UserID:      userID,
			OldPassword: req.OldPassword,
			NewPassword: req.NewPassword,
		})
		if err != nil {
			writeServiceError(w, r, "failed to change password", err)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	})

	return h.AuthenticatedOnly(hf)
}
