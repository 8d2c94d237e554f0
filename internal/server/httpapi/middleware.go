package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/server/auth"
)

// Context keys for the authenticated identity.
const (
	contextKeyAccountID = "auth_account_id"
	contextKeyUsername  = "auth_username"
)

// requireAuth authenticates the request from the access-token cookie, falling
// back to an Authorization bearer header for non-browser clients, and stashes
// the verified identity in the gin context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFrom(c)
		if token == "" {
			s.respondError(c, common.NewError(common.ErrUnauthorized, "unauthorized request"))
			return
		}

		claims, err := s.issuer.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				s.logger.Warn(c.Request.Context(), "access token expired", "path", c.FullPath())
			} else {
				s.logger.Warn(c.Request.Context(), "access token invalid", "path", c.FullPath())
			}
			s.respondError(c, common.NewError(common.ErrUnauthorized, "invalid access token"))
			return
		}

		c.Set(contextKeyAccountID, claims.Subject)
		c.Set(contextKeyUsername, claims.Username)
		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// accountID returns the authenticated account id set by requireAuth.
func accountID(c *gin.Context) string {
	return c.GetString(contextKeyAccountID)
}

// requestLogger logs one line per request with method, path, status and
// duration.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// recovery converts panics into the standard internal-error envelope.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error(c.Request.Context(), "panic recovered", "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{
			StatusCode: http.StatusInternalServerError,
			Data:       nil,
			Message:    "internal error",
			Success:    false,
		})
	})
}
