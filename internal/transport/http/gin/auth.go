package httpgin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
)

const principalKey = "principal"

// TokenParser verifies an access token. *auth.Manager implements it.
type TokenParser interface {
	Parse(raw string) (domain.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token with 401.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.Request)
		if raw == "" {
			respondErr(c, domain.ErrUnauthenticated)
			return
		}

		p, err := tokens.Parse(raw)
		if err != nil {
			respondErr(c, domain.NewError(domain.CodeUnauthenticated, "invalid or expired token"))
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principalFrom(c).IsAdmin() {
			respondErr(c, domain.NewError(domain.CodeUnauthorized, "admin role required"))
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}
	}
	p, _ := v.(domain.Principal)
	return p
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// wsToken accepts the token from the query string, since browsers cannot
// set headers on a websocket handshake, and falls back to the header.
func wsToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	return bearerToken(r)
}
