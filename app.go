package threadline

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/env"
	"github.com/nasermirzaei89/threadline/authentication"
	"github.com/nasermirzaei89/threadline/authorization"
	"github.com/nasermirzaei89/threadline/authorization/casbin"
	"github.com/nasermirzaei89/threadline/contents"
	"github.com/nasermirzaei89/threadline/db/postgres"
	"github.com/nasermirzaei89/threadline/db/repository"
	"github.com/nasermirzaei89/threadline/db/sqlite3"
	"github.com/nasermirzaei89/threadline/directory"
	"github.com/nasermirzaei89/threadline/discuss"
	"github.com/nasermirzaei89/threadline/profiles"
	"github.com/nasermirzaei89/threadline/random"
	"github.com/nasermirzaei89/threadline/server"
	"github.com/nasermirzaei89/threadline/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"

	defaultSessionSweepInterval = time.Hour
)

type UnknownDBDriverError struct {
	Driver string
}

func (err UnknownDBDriverError) Error() string {
	return fmt.Sprintf("unknown database driver %q; allowed: %s, %s", err.Driver, DBDriverSQLite, DBDriverPostgres)
}

type App struct {
	server        *server.Server
	handler       http.Handler
	db            *sql.DB
	authSvc       *authentication.Service
	sessionRepo   *repository.SessionRepository
	sweepInterval time.Duration
}

//go:embed policy.csv
var defaultAuthorizationPolicyContent string

type database struct {
	db            *sql.DB
	placeholder   sq.PlaceholderFormat
	adapterDriver string
}

func openDatabase(ctx context.Context) (*database, error) {
	driver := env.GetString("DB_DRIVER", DBDriverSQLite)

	switch driver {
	case DBDriverSQLite:
		db, err := sqlite3.NewDB(ctx, env.GetString("DB_DSN", sqlite3.DefaultDSN))
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection: %w", err)
		}

		err = sqlite3.MigrateUp(ctx, db)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to run database migrations: %w", err), db.Close())
		}

		return &database{db: db, placeholder: sqlite3.Placeholder, adapterDriver: sqlite3.AdapterDriverName}, nil
	case DBDriverPostgres:
		dsn := env.GetString("DB_DSN", "")
		if dsn == "" {
			return nil, errors.New("DB_DSN is required for postgres")
		}

		db, err := postgres.NewDB(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection: %w", err)
		}

		err = postgres.MigrateUp(ctx, db)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to run database migrations: %w", err), db.Close())
		}

		return &database{db: db, placeholder: postgres.Placeholder, adapterDriver: postgres.AdapterDriverName}, nil
	default:
		return nil, &UnknownDBDriverError{Driver: driver}
	}
}

func NewApp(ctx context.Context) (_ *App, err error) {
	database, err := openDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := database.db

	defer func() {
		if err != nil {
			err = errors.Join(err, db.Close())
		}
	}()

	userRepo := repository.NewUserRepository(db, database.placeholder)
	sessionRepo := repository.NewSessionRepository(db, database.placeholder)
	postRepo := repository.NewPostRepository(db, database.placeholder)
	replyRepo := repository.NewReplyRepository(db, database.placeholder)

	authzProvider, err := newAuthorizationProvider(ctx, db, database.adapterDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization provider: %w", err)
	}

	authzSvc, err := authorization.NewService(authzProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization service: %w", err)
	}

	authzClient := authorization.NewClient(authzSvc)
	authSvc := authentication.NewService(userRepo, sessionRepo, authzClient)

	if err := authSvc.LoadUsernameFilter(ctx, 10_000, 0.01); err != nil {
		return nil, fmt.Errorf("failed to load username filter: %w", err)
	}

	tokens, err := authentication.NewTokenIssuer(
		[]byte(env.GetString("TOKEN_SECRET", random.String(32))),
		env.GetString("TOKEN_ISSUER", authentication.DefaultTokenIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	contentsBase := contents.NewService(postRepo)
	contentsSvc := contents.NewAuthorizationMiddleware(authzClient, contentsBase)

	discussBase := discuss.NewService(replyRepo, directory.NewAuthors(authSvc), directory.NewPosts(contentsBase))
	discussSvc := discuss.NewAuthorizationMiddleware(authzClient, discussBase)

	profilesSvc := profiles.NewAuthorizationMiddleware(authzClient, profiles.NewService(authSvc, contentsBase))

	srv := newServer()
	plaintext := !srv.TLS.Enabled

	sessionName := env.GetString("SESSION_NAME", "threadline-"+random.String(4))
	sessionKey := env.GetString("SESSION_KEY", random.String(32))
	cookieStore := sessions.NewCookieStore([]byte(sessionKey))
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.Secure = !plaintext
	cookieStore.Options.SameSite = http.SameSiteLaxMode

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "threadline"),
	)

	httpHandler, err := web.NewHandler(
		authSvc,
		tokens,
		contentsSvc,
		discussSvc,
		profilesSvc,
		cookieStore,
		registry,
		web.Config{
			SessionName:        sessionName,
			CSRFAuthKey:        []byte(env.GetString("CSRF_AUTH_KEY", random.String(16))),
			CSRFTrustedOrigins: env.GetStringSlice("CSRF_TRUSTED_ORIGINS", []string{}),
			CORSAllowedOrigins: env.GetStringSlice("CORS_ALLOWED_ORIGINS", []string{}),
			Plaintext:          plaintext,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	sweepInterval, err := time.ParseDuration(env.GetString("SESSION_SWEEP_INTERVAL", defaultSessionSweepInterval.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse session sweep interval: %w", err)
	}

	app := &App{
		server:        srv,
		handler:       httpHandler,
		db:            db,
		authSvc:       authSvc,
		sessionRepo:   sessionRepo,
		sweepInterval: sweepInterval,
	}

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	// Handle SIGINT (CTRL+C) and SIGTERM gracefully.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if app.db != nil {
			err := app.db.Close()
			if err != nil {
				slog.ErrorContext(ctx, "failed to close database", "error", err)
			}
		}
	}()

	go app.sweepExpiredSessions(ctx)

	err := app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

func (app *App) sweepExpiredSessions(ctx context.Context) {
	if app.sweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(app.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.sweepOnce(ctx)
		}
	}
}

func (app *App) sweepOnce(ctx context.Context) {
	deleted, err := app.authSvc.SweepExpiredSessions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to sweep expired sessions", "error", err)

		return
	}

	if deleted > 0 {
		slog.InfoContext(ctx, "deleted expired sessions", "count", deleted)
	}
}

func newServer() *server.Server {
	server := &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return server
}

func newAuthorizationProvider(ctx context.Context, db *sql.DB, adapterDriver string) (*casbin.AuthorizationProvider, error) {
	adapter, err := casbin.NewSQLAdapter(db, adapterDriver, env.GetString("AUTHORIZATION_TABLE", casbin.DefaultTableName))
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization adapter: %w", err)
	}

	provider, err := casbin.NewAuthorizationProvider(adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization provider: %w", err)
	}

	policyContent, err := loadPolicyContent()
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization policy content: %w", err)
	}

	err = provider.AddPolicyFromCSV(ctx, policyContent)
	if err != nil {
		return nil, fmt.Errorf("failed to add authorization policy from csv: %w", err)
	}

	return provider, nil
}

func loadPolicyContent() (string, error) {
	policyFilePath := env.GetString("AUTHORIZATION_POLICY_FILE", "")

	if policyFilePath == "" {
		return defaultAuthorizationPolicyContent, nil
	}

	content, err := os.ReadFile(policyFilePath) // nolint:gosec
	if err != nil {
		return "", fmt.Errorf("failed to read policy file %q: %w", policyFilePath, err)
	}

	return string(content), nil
}
