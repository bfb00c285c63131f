package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/detailflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/detailflow/internal/observability/metrics"
	"github.com/smallbiznis/detailflow/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitReasonOrgRate = "org-rate"
	rateLimitReasonIPRate  = "ip-rate"
)

type presignLimiter interface {
	Allow(ctx context.Context, orgSlug, clientIP string) (*ratelimit.Result, error)
}

type presignRateLimitKey struct {
	OrgSlug string `json:"orgSlug"`
}

// PresignRateLimit throttles the public upload endpoint per organization and per client address.
// A limiter backend failure lets the request through.
func (s *Server) PresignRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.presignLimiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)

		orgSlug, err := readPresignRateLimitKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("presign rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		res, err := s.presignLimiter.Allow(ctx, orgSlug, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("presign rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if res != nil && !res.Allowed {
			reason := rateLimitReasonIPRate
			if res.Scope == ratelimit.ScopeOrg {
				reason = rateLimitReasonOrgRate
			}
			denyPresignRateLimit(c, endpoint, orgSlug, reason, res, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, orgSlug, s.obsMetrics)
		c.Next()
	}
}

func denyPresignRateLimit(c *gin.Context, endpoint, orgSlug, reason string, res *ratelimit.Result, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("presign rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
		zap.String("org_slug", orgSlug),
	)
	recordRateLimitDenied(ctx, endpoint, orgSlug, reason, metrics)

	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(res)))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(res *ratelimit.Result) int {
	if res == nil || res.RetryAfter <= 0 {
		return 1
	}
	return int(math.Ceil(res.RetryAfter.Seconds()))
}

func recordRateLimitAllowed(ctx context.Context, endpoint, orgSlug string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, orgSlug, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, orgSlug, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, orgSlug, endpoint, reason)
}

// readPresignRateLimitKey peeks at the org slug and restores the body for the handler.
func readPresignRateLimitKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload presignRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(payload.OrgSlug)), nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
