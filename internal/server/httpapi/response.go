package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/clipstream/clipstream/internal/common"
)

// envelope is the uniform response shape of every endpoint. Success mirrors
// the status code so clients can branch without inspecting numbers.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
	})
}

// respondError serializes a domain error into the error envelope. Internal
// detail stays in server logs; the client only ever sees the user-safe
// message from the error taxonomy.
func (s *Server) respondError(c *gin.Context, err error) {
	status := common.StatusFor(err)
	if status >= 500 {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	} else {
		s.logger.Warn(c.Request.Context(), "request rejected", "path", c.FullPath(), "status", status, "reason", common.Message(err))
	}
	c.AbortWithStatusJSON(status, envelope{
		StatusCode: status,
		Data:       nil,
		Message:    common.Message(err),
		Success:    false,
	})
}
