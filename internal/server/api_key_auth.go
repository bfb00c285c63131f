package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/detailflow/internal/observability/context"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
)

const (
	contextOrgIDKey    = "org_id"
	contextAPIKeyIDKey = "api_key_id"
	contextRoleKey     = "api_key_role"

	actorTypeAPIKey = "api_key"
)

// APIKeyRequired authenticates staff requests with a bearer API key.
// The organization is taken from the key record, never from the request.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.apiKeySvc.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if principal == nil || principal.OrgID == uuid.Nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), principal.OrgID)
		ctx = obscontext.WithOrgID(ctx, principal.OrgID.String())
		ctx = obscontext.WithActor(ctx, actorTypeAPIKey, principal.KeyID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(contextOrgIDKey, principal.OrgID.String())
		c.Set(contextAPIKeyIDKey, principal.KeyID)
		c.Set(contextRoleKey, principal.Role)
		c.Next()
	}
}

func apiKeyIDFromContext(c *gin.Context) (string, bool) {
	value := strings.TrimSpace(c.GetString(contextAPIKeyIDKey))
	return value, value != ""
}
