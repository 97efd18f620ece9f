package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/uaizouk/backoffice/internal/observability/context"
)

const bearerPrefix = "Bearer "

func (s *Server) AdminTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		ctx := obscontext.WithActor(c.Request.Context(), "admin", "token")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
