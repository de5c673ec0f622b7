package web

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *userResponse `json:"user"`
}

// HandleSignup registers the user and logs them in with the same
// credentials.
func (h *Handler) HandleSignup() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		_, err := h.authSvc.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			writeServiceError(w, r, "failed to register user", err)

			return
		}

		h.startSession(w, r, req, http.StatusCreated)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLogin() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		h.startSession(w, r, req, http.StatusOK)
	})

	return h.GuestOnly(hf)
}

// startSession logs in with creds, stores the issued token in the session
// cookie and answers it together with the user.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, creds credentialsRequest, status int) {
	session, err := h.authSvc.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeServiceError(w, r, "failed to login user", err)

		return
	}

	token, err := h.tokens.Issue(session)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue token", "sessionId", session.ID, "error", err)
		writeInternalError(w, r)

		return
	}

	user, err := h.authSvc.GetUser(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, r, "failed to get logged in user", err)

		return
	}

	err = h.setSessionValue(w, r, sessionTokenKey, token)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to set session value", "key", sessionTokenKey, "error", err)
		writeInternalError(w, r)

		return
	}

	writeJSON(w, r, status, &loginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      newUserResponse(user),
	})
}

func (h *Handler) HandleLogout() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := authcontext.GetSessionID(r.Context())
		if !ok {
			writeUnauthorized(w, r)

			return
		}

		err := h.authSvc.Logout(r.Context(), sessionID)
		if err != nil {
			writeServiceError(w, r, "failed to logout user", err)

			return
		}

		h.forgetCookieToken(w, r, false)

		w.WriteHeader(http.StatusNoContent)
	})

	return h.AuthenticatedOnly(hf)
}

type usernameAvailableResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

func (h *Handler) HandleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("name"))
	if username == "" {
		writeError(w, r, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: "must not be empty",
			Field:   "name",
		})

		return
	}

	available, err := h.authSvc.IsUsernameAvailable(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, "failed to check username availability", err)

		return
	}

	writeJSON(w, r, http.StatusOK, &usernameAvailableResponse{Username: username, Available: available})
}

type csrfResponse struct {
	Token string `json:"csrf_token"`
}

func (h *Handler) HandleCSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	writeJSON(w, r, http.StatusOK, &csrfResponse{Token: csrf.Token(r)})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.authSvc.GetCurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, r, "failed to get current user", err)

		return
	}

	writeJSON(w, r, http.StatusOK, newUserResponse(user))
}
