package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/detailflow/internal/clock"
	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/smallbiznis/detailflow/internal/storage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultUploadExpiry = 10 * time.Minute
	defaultMaxBytes     = 20 << 20
	suffixLength        = 6
	suffixAlphabet      = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Backend domain.Backend
}

type Gateway struct {
	log           *zap.Logger
	clock         clock.Clock
	backend       domain.Backend
	publicBaseURL string
	expiry        time.Duration
	maxBytes      int64
}

func New(p Params) domain.Gateway {
	expiry := p.Config.Storage.UploadExpiry
	if expiry <= 0 {
		expiry = defaultUploadExpiry
	}
	maxBytes := p.Config.Storage.MaxObjectBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Gateway{
		log:           p.Log.Named("storage.gateway"),
		clock:         p.Clock,
		backend:       p.Backend,
		publicBaseURL: strings.TrimRight(p.Config.Storage.PublicBaseURL, "/"),
		expiry:        expiry,
		maxBytes:      maxBytes,
	}
}

func (g *Gateway) IssueUploadCredential(ctx context.Context, tenantSlug, fileName, contentType string) (*domain.UploadCredential, error) {
	contentType = domain.NormalizeContentType(contentType)
	if !domain.IsAllowedContentType(contentType) {
		return nil, domain.ErrUnsupportedContentType
	}
	tenantSlug = strings.TrimSpace(tenantSlug)
	if tenantSlug == "" || !slug.IsSlug(tenantSlug) {
		return nil, domain.ErrInvalidTenant
	}

	now := g.clock.Now()
	suffix, err := randomSuffix()
	if err != nil {
		return nil, err
	}
	key := BuildObjectKey(tenantSlug, now, suffix, fileName)
	expiresAt := now.Add(g.expiry)

	uploadURL, err := g.backend.PresignPut(ctx, key, contentType, g.expiry)
	if err != nil {
		g.log.Error("presign failed",
			zap.String("provider", g.backend.Name()),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrPresignFailed, err)
	}

	credential := &domain.UploadCredential{
		UploadURL: uploadURL,
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		ObjectKey: key,
		ExpiresAt: expiresAt,
	}
	if g.publicBaseURL != "" {
		credential.PublicURL = g.publicBaseURL + "/" + key
	}
	return credential, nil
}

func (g *Gateway) FetchObject(ctx context.Context, key string) (*domain.Object, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, &domain.FetchError{Key: key, Reason: domain.ReasonNotFound, Err: domain.ErrInvalidKey}
	}

	obj, err := g.backend.Get(ctx, key, g.maxBytes)
	if err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, &domain.FetchError{Key: key, Reason: domain.ReasonTransport, Err: err}
	}
	if int64(len(obj.Data)) > g.maxBytes {
		return nil, &domain.FetchError{Key: key, Reason: domain.ReasonTooLarge}
	}

	contentType := domain.NormalizeContentType(obj.ContentType)
	if contentType == "" || contentType == "application/octet-stream" || contentType == "binary/octet-stream" {
		contentType = domain.NormalizeContentType(mimetype.Detect(obj.Data).String())
	}
	obj.Key = key
	obj.ContentType = contentType
	return obj, nil
}

// BuildObjectKey returns intake/<slug>/<unixMillis>-<suffix>-<sanitized file name>.
func BuildObjectKey(tenantSlug string, now time.Time, suffix, fileName string) string {
	return domain.IntakePrefix(tenantSlug) +
		strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix + "-" + SanitizeFileName(fileName)
}

// SanitizeFileName replaces everything outside [a-zA-Z0-9._-] with '_'.
func SanitizeFileName(name string) string {
	cleaned := unsafeFileChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if cleaned == "" {
		return "photo"
	}
	return cleaned
}

func randomSuffix() (string, error) {
	max := big.NewInt(int64(len(suffixAlphabet)))
	var b strings.Builder
	b.Grow(suffixLength)
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(suffixAlphabet[n.Int64()])
	}
	return b.String(), nil
}
