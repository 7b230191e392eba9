package app

import (
	"strings"

	"github.com/gin-gonic/gin"

	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/identity"
)

const principalKey = "principal"

// AuthRequired verifies the bearer ID token and stores the caller's
// Principal on the context for the rest of the chain.
func AuthRequired(v identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, apperr.Unauthenticated("missing bearer token"))
			return
		}
		verified, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			if apperr.KindOf(err) != apperr.KindUnauthenticated {
				err = &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "invalid token", Err: err}
			}
			AbortWithError(c, err)
			return
		}
		c.Set(principalKey, verified.Principal)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func principal(c *gin.Context) (authz.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return authz.Principal{}, false
	}
	p, ok := v.(authz.Principal)
	return p, ok
}

// PrincipalFrom returns the caller set by AuthRequired, or the zero
// Principal, which every permission check rejects.
func PrincipalFrom(c *gin.Context) authz.Principal {
	p, _ := principal(c)
	return p
}

// WithPrincipal is AuthRequired for tests and internal callers that already
// know who is calling.
func WithPrincipal(p authz.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(principalKey, p)
		c.Next()
	}
}
