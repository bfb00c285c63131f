package orgcontext

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// OrgContextKey is the request context key for the active organization ID.
type OrgContextKey struct{}

// WithOrgID stores the org ID in the context.
func WithOrgID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, OrgContextKey{}, orgID)
}

// OrgIDFromContext returns the org ID from context, if set.
// A *gin.Context is also accepted: its "org_id" key is consulted as a fallback.
func OrgIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}

	if id, ok := parse(ctx.Value(OrgContextKey{})); ok {
		return id, true
	}
	return parse(ctx.Value("org_id"))
}

func parse(value any) (uuid.UUID, bool) {
	switch typed := value.(type) {
	case uuid.UUID:
		return typed, typed != uuid.Nil
	case string:
		parsed, err := uuid.Parse(strings.TrimSpace(typed))
		if err == nil && parsed != uuid.Nil {
			return parsed, true
		}
	}
	return uuid.Nil, false
}
