package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"launchpad/pkg/docstore"
	"launchpad/pkg/response"
)

const contextKey = "session.state"

// Middleware attaches a State to every request. A bearer token (or a
// "token" query parameter, which browsers need for websockets) that
// resolves to a user turns the request authenticated; anything else leaves
// it anonymous.
func Middleware(resolver Resolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := Anonymous()
		token := bearerToken(c)
		if token != "" {
			user, err := resolver.Resolve(c.Request.Context(), token)
			switch {
			case err == nil:
				state.Token = token
				next, terr := Transition(state, Event{Kind: EventLogin, User: user})
				if terr == nil {
					state = next
				}
			case errors.Is(err, docstore.ErrRemoteUnavailable):
				logger.Error("session lookup failed", zap.Error(err))
				response.SendAPIResponse(c, http.StatusServiceUnavailable, false, "session store unavailable", nil)
				c.Abort()
				return
			case !errors.Is(err, ErrUnauthenticated):
				logger.Warn("session lookup failed", zap.Error(err))
			}
		}
		Set(c, state)
		c.Next()
	}
}

// Require rejects anonymous requests with 401.
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !FromContext(c).Authenticated() {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, ErrUnauthenticated.Error(), nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Set attaches s to the request.
func Set(c *gin.Context, s State) {
	c.Set(contextKey, s)
}

// FromContext returns the request's state, anonymous when Middleware did
// not run.
func FromContext(c *gin.Context) State {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(State); ok {
			return s
		}
	}
	return Anonymous()
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Query("token")
}
