// Package web serves the JSON API over HTTP.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/threadline/authentication"
	"github.com/nasermirzaei89/threadline/contents"
	"github.com/nasermirzaei89/threadline/discuss"
	"github.com/nasermirzaei89/threadline/profiles"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const DefaultSessionName = "threadline"

type Config struct {
	SessionName        string
	CSRFAuthKey        []byte
	CSRFTrustedOrigins []string
	CORSAllowedOrigins []string
	// Plaintext marks the server as reachable over plain HTTP, which relaxes
	// the Referer check of the CSRF protection and the Secure cookie flag.
	Plaintext bool
}

type Handler struct {
	router      chi.Router
	authSvc     *authentication.Service
	tokens      *authentication.TokenIssuer
	contentsSvc contents.Service
	discussSvc  discuss.Service
	profilesSvc profiles.Service
	cookieStore *sessions.CookieStore
	sessionName string
	plaintext   bool
	markdown    goldmark.Markdown
	metrics     *metrics
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(
	authSvc *authentication.Service,
	tokens *authentication.TokenIssuer,
	contentsSvc contents.Service,
	discussSvc discuss.Service,
	profilesSvc profiles.Service,
	cookieStore *sessions.CookieStore,
	registry *prometheus.Registry,
	cfg Config,
) (*Handler, error) {
	if len(cfg.CSRFAuthKey) != 32 {
		return nil, errors.New("csrf auth key must be 32 bytes")
	}

	if cfg.SessionName == "" {
		cfg.SessionName = DefaultSessionName
	}

	h := &Handler{
		router:      chi.NewRouter(),
		authSvc:     authSvc,
		tokens:      tokens,
		contentsSvc: contentsSvc,
		discussSvc:  discussSvc,
		profilesSvc: profilesSvc,
		cookieStore: cookieStore,
		sessionName: cfg.SessionName,
		plaintext:   cfg.Plaintext,
		metrics:     newMetrics(registry),
	}

	h.markdown = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // tables, strikethrough, task lists, autolinks
		),
	)

	h.router.Use(middleware.RequestID)
	h.router.Use(recoverMiddleware)
	h.router.Use(h.metrics.middleware)
	h.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	h.router.Method(http.MethodGet, "/metrics", h.metrics.handler)

	h.router.Route("/api", func(r chi.Router) {
		r.Use(h.csrfExemptMiddleware)
		r.Use(csrf.Protect(
			cfg.CSRFAuthKey,
			csrf.TrustedOrigins(cfg.CSRFTrustedOrigins),
			csrf.Secure(!cfg.Plaintext),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(csrfFailureHandler)),
		))
		r.Use(h.authMiddleware)

		h.registerRoutes(r)
	})

	h.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, APIError{Code: CodeNotFound, Message: "route not found"})
	})
	h.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, APIError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes(r chi.Router) {
	r.Method(http.MethodPost, "/auth/signup", h.HandleSignup())
	r.Method(http.MethodPost, "/auth/login", h.HandleLogin())
	r.Method(http.MethodPost, "/auth/logout", h.HandleLogout())
	r.Method(http.MethodGet, "/auth/me", h.AuthenticatedOnly(http.HandlerFunc(h.HandleMe)))
	r.Get("/auth/username-available", h.HandleUsernameAvailable)
	r.Get("/auth/csrf", h.HandleCSRFToken)

	r.Get("/posts", h.HandleListPosts)
	r.Method(http.MethodPost, "/posts", h.HandleCreatePost())
	r.Get("/posts/{postId}", h.HandleGetPost)

	r.Get("/replies", h.HandleListReplies)
	r.Method(http.MethodPost, "/replies", h.HandleCreateReply())
	r.Get("/replies/{replyId}", h.HandleGetReply)
	r.Method(http.MethodPost, "/replies/{replyId}/vote", h.HandleVoteReply())

	r.Get("/breadcrumb", h.HandleBreadcrumb)

	r.Get("/profiles/{username}", h.HandleGetProfile)
	r.Method(http.MethodPost, "/profile", h.HandleEditProfile())
	r.Method(http.MethodPost, "/profile/password", h.HandleChangePassword())
}

func csrfFailureHandler(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "csrf check failed", "reason", csrf.FailureReason(r))

	writeError(w, r, http.StatusForbidden, APIError{Code: CodeCSRF, Message: "CSRF token missing or invalid"})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler { //nolint:errorlint
					panic(err)
				}

				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				writeInternalError(w, r)
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}
