// Package httpapi is the HTTP gateway of the account service. It maps
// requests and cookies onto session-coordinator calls and serializes results
// into the uniform response envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipstream/clipstream/internal/logging"
	"github.com/clipstream/clipstream/internal/server/auth"
	"github.com/clipstream/clipstream/internal/server/services"
)

// Server hosts the gin engine and its dependencies.
type Server struct {
	address   string
	service   *services.SessionService
	issuer    *auth.Issuer
	logger    logging.Logger
	uploadDir string
	engine    *gin.Engine
}

// NewServer builds the router with all routes and middleware registered.
func NewServer(address string, service *services.SessionService, issuer *auth.Issuer,
	uploadDir string, logger logging.Logger) *Server {

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		address:   address,
		service:   service,
		issuer:    issuer,
		logger:    logger.With("module", "http_server"),
		uploadDir: uploadDir,
		engine:    gin.New(),
	}

	s.engine.Use(s.requestLogger(), s.recovery())
	s.registerRoutes()

	return s
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// setTokenCookies attaches both bearer artifacts as HttpOnly+Secure cookies.
// No Max-Age is set: the tokens carry their own expiry.
func (s *Server) setTokenCookies(c *gin.Context, access, refresh string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, access, 0, "/", "", true, true)
	c.SetCookie(refreshTokenCookie, refresh, 0, "/", "", true, true)
}

func (s *Server) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", true, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", true, true)
}
