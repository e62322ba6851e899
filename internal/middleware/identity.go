package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/jwt"

	"github.com/simp-lee/crudbase/internal/domain"
)

const identityContextKey = "acting_identity"

// NameResolver maps an authenticated user id to the display name recorded
// as the acting identity on audit stamps.
type NameResolver func(ctx context.Context, userID string) (string, error)

// Identity returns a gin middleware that resolves the acting identity of
// the current request from its Bearer token. Requests without a valid token
// simply proceed unidentified; downstream commits then stamp the anonymous
// sentinel. The resolution happens once per request, and handlers pass the
// result explicitly into the data-access layer.
func Identity(jwtSvc jwt.Service, resolve NameResolver) gin.HandlerFunc {
	const prefix = "Bearer "

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, prefix) {
			c.Next()
			return
		}

		token, err := jwtSvc.ValidateAndParse(strings.TrimPrefix(header, prefix))
		if err != nil {
			c.Next()
			return
		}

		name, err := resolve(c.Request.Context(), token.UserID)
		if err != nil || name == "" {
			c.Next()
			return
		}

		c.Set(identityContextKey, name)
		c.Next()
	}
}

// SetActingIdentity records the acting identity on the request context.
// Exposed for tests and for auth flows that establish identity without a
// Bearer token.
func SetActingIdentity(c *gin.Context, name string) {
	c.Set(identityContextKey, name)
}

// ActingIdentity returns the resolved acting identity for the request, or
// the anonymous sentinel when none was established.
func ActingIdentity(c *gin.Context) string {
	if v, ok := c.Get(identityContextKey); ok {
		if name, ok := v.(string); ok && name != "" {
			return name
		}
	}
	return domain.AnonymousIdentity
}
