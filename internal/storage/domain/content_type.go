package domain

import "strings"

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
	"image/heif": {},
}

// NormalizeContentType lowercases the media type and drops parameters.
func NormalizeContentType(contentType string) string {
	value := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}

func IsAllowedContentType(contentType string) bool {
	_, ok := allowedContentTypes[NormalizeContentType(contentType)]
	return ok
}

// IntakePrefix is the namespace every intake upload for tenantSlug lives under.
func IntakePrefix(tenantSlug string) string {
	return "intake/" + tenantSlug + "/"
}
