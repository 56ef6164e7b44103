package session

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/tembichat/internal/db"
	svcErr "github.com/oggyb/tembichat/internal/errors"
	"github.com/oggyb/tembichat/internal/logger"
	"github.com/oggyb/tembichat/internal/server/response"
)

const userKey = "session.user"

// Middleware requires "Authorization: Bearer <token>", verifies it and
// stores the renewed user in the gin context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight carries no credentials
		if c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}

		raw, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, s.appCtx.Logger, svcErr.ErrInvalidToken)
			return
		}

		user, err := s.Verify(c.Request.Context(), raw)
		if err != nil {
			response.Error(c, s.appCtx.Logger, err)
			return
		}

		c.Set(userKey, user)
		ctxLog := logger.FromContext(c.Request.Context(), s.appCtx.Logger).With("user_id", user.ID)
		c.Request = c.Request.WithContext(logger.IntoContext(c.Request.Context(), ctxLog))
		c.Next()
	}
}

// CurrentUser returns the user the middleware authenticated.
func CurrentUser(c *gin.Context) *db.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*db.User); ok {
			return u
		}
	}
	return nil
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
