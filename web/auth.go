package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/nasermirzaei89/threadline/authentication"
	authcontext "github.com/nasermirzaei89/threadline/authentication/context"
)

const bearerPrefix = "Bearer "

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

	return token, token != ""
}

// csrfExemptMiddleware lets bearer requests through the CSRF check; browsers
// never attach the Authorization header on their own.
func (h *Handler) csrfExemptMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bearerToken(r); ok {
			r = csrf.UnsafeSkipCheck(r)
		}

		if h.plaintext {
			r = csrf.PlaintextHTTPRequest(r)
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves the caller from a bearer token or the session
// cookie. A token that does not resolve to a live session leaves the caller
// anonymous.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromHeader := bearerToken(r)
		if !fromHeader {
			var sessionValueNotFoundError *SessionValueNotFoundError

			var err error

			token, err = h.getSessionString(r, sessionTokenKey)
			if err != nil {
				if !errors.As(err, &sessionValueNotFoundError) {
					slog.WarnContext(r.Context(), "error on getting session value", "key", sessionTokenKey, "error", err)
				}

				next.ServeHTTP(w, r)

				return
			}
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			slog.WarnContext(r.Context(), "ignoring invalid token", "fromHeader", fromHeader, "error", err)
			h.forgetCookieToken(w, r, fromHeader)
			next.ServeHTTP(w, r)

			return
		}

		session, err := h.authSvc.GetSession(r.Context(), claims.SessionID())
		if err != nil {
			var (
				sessionNotFoundErr *authentication.SessionNotFoundError
				sessionExpiredErr  *authentication.SessionExpiredError
			)

			if errors.As(err, &sessionNotFoundErr) || errors.As(err, &sessionExpiredErr) {
				slog.InfoContext(r.Context(), "ignoring token of ended session", "sessionId", claims.SessionID())
				h.forgetCookieToken(w, r, fromHeader)
				next.ServeHTTP(w, r)

				return
			}

			slog.ErrorContext(r.Context(), "error on getting session", "sessionId", claims.SessionID(), "error", err)
			writeInternalError(w, r)

			return
		}

		if session.UserID != claims.UserID() {
			slog.WarnContext(r.Context(), "token subject does not own session", "sessionId", session.ID)
			next.ServeHTTP(w, r)

			return
		}

		ctx := authcontext.WithSessionID(r.Context(), session.ID)
		ctx = authcontext.WithSubject(ctx, session.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) forgetCookieToken(w http.ResponseWriter, r *http.Request, fromHeader bool) {
	if fromHeader {
		return
	}

	err := h.deleteSessionValue(w, r, sessionTokenKey)
	if err != nil {
		slog.WarnContext(r.Context(), "error on deleting session value", "key", sessionTokenKey, "error", err)
	}
}

func isAuthenticated(r *http.Request) bool {
	_, ok := authcontext.UserID(r.Context())

	return ok
}

func (h *Handler) AuthenticatedOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAuthenticated(r) {
			writeUnauthorized(w, r)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) GuestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAuthenticated(r) {
			writeError(w, r, http.StatusForbidden, APIError{
				Code:    CodeAlreadyAuthenticated,
				Message: "already authenticated",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}
