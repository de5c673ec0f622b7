// Package server runs an http.Handler with optional TLS until its context is
// cancelled.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeAutoCert

	TLSModeAutoCert = "autocert"
	TLSModeFile     = "file"

	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type UnknownTLSModeError struct {
	Mode string
}

func (err UnknownTLSModeError) Error() string {
	return fmt.Sprintf("unknown tls mode %q", err.Mode)
}

func (s *Server) address() string {
	port := s.Port
	if port == "" {
		port = DefaultPort
	}

	return net.JoinHostPort(s.Host, port)
}

func (s *Server) newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              s.address(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// Run serves handler until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	httpServer := s.newHTTPServer(handler)

	var challengeServer *http.Server

	serve := func() error {
		slog.InfoContext(ctx, "http server starting", "address", httpServer.Addr)

		return httpServer.ListenAndServe()
	}

	if s.TLS.Enabled {
		switch s.TLS.Mode {
		case TLSModeAutoCert:
			if s.TLS.AutoCert == nil || len(s.TLS.AutoCert.Domains) == 0 {
				return errors.New("autocert requires at least one domain")
			}

			manager := &autocert.Manager{
				Prompt:     autocert.AcceptTOS,
				HostPolicy: autocert.HostWhitelist(s.TLS.AutoCert.Domains...),
				Cache:      autocert.DirCache(s.TLS.AutoCert.CacheDir),
				Email:      s.TLS.AutoCert.Email,
			}

			httpServer.TLSConfig = &tls.Config{
				GetCertificate: manager.GetCertificate,
				NextProtos:     []string{"h2", "http/1.1", "acme-tls/1"},
				MinVersion:     tls.VersionTLS12,
			}

			challengeServer = &http.Server{
				Addr:              net.JoinHostPort(s.Host, "80"),
				Handler:           manager.HTTPHandler(nil),
				ReadHeaderTimeout: readHeaderTimeout,
			}

			go func() {
				err := challengeServer.ListenAndServe()
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.ErrorContext(ctx, "acme challenge server failed", "error", err)
				}
			}()

			serve = func() error {
				slog.InfoContext(
					ctx,
					"https server starting",
					"address", httpServer.Addr,
					"domains", domainsToHTTPSAddress(s.TLS.AutoCert.Domains),
				)

				return httpServer.ListenAndServeTLS("", "")
			}
		case TLSModeFile:
			if s.TLS.CertFile == "" || s.TLS.KeyFile == "" {
				return errors.New("tls file mode requires cert and key files")
			}

			httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}

			serve = func() error {
				slog.InfoContext(ctx, "https server starting", "address", httpServer.Addr)

				return httpServer.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile)
			}
		default:
			return &UnknownTLSModeError{Mode: s.TLS.Mode}
		}
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- serve()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	slog.InfoContext(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if challengeServer != nil {
		err := challengeServer.Shutdown(shutdownCtx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to shut down acme challenge server", "error", err)
		}
	}

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))
	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
