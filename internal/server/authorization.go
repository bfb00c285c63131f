package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/detailflow/internal/authorization"
	"github.com/smallbiznis/detailflow/internal/orgcontext"
)

func (s *Server) authorizeOrgAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeOrgActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeOrgActionWithContext(c *gin.Context, object string, action string) error {
	keyID, ok := apiKeyIDFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), actorSubject(keyID), orgID.String(), object, action)
}

// actorSubject is the casbin subject and stage-history actor for an API key.
func actorSubject(keyID string) string {
	return authorization.ActorAPIKeyPrefix + keyID
}
