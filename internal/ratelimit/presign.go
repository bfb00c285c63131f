package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/detailflow/internal/config"
)

const (
	keyPresignOrg = "presign:org:%s"
	keyPresignIP  = "presign:ip:%s"

	ScopeOrg = "org"
	ScopeIP  = "ip"
)

type bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error)
}

// PresignLimiter throttles upload credential issuance per organization
// and per client address. A nil limiter allows everything.
type PresignLimiter struct {
	bucket bucket

	orgRate  float64
	orgBurst int
	ipRate   float64
	ipBurst  int
}

func NewPresignLimiter(cfg config.Config, tb *TokenBucket) (*PresignLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || tb == nil {
		return nil, nil
	}
	if limitCfg.PresignOrgRate <= 0 || limitCfg.PresignOrgBurst <= 0 {
		return nil, errors.New("presign org rate limit must be positive")
	}
	if limitCfg.PresignIPRate <= 0 || limitCfg.PresignIPBurst <= 0 {
		return nil, errors.New("presign ip rate limit must be positive")
	}
	return &PresignLimiter{
		bucket:   tb,
		orgRate:  limitCfg.PresignOrgRate,
		orgBurst: limitCfg.PresignOrgBurst,
		ipRate:   limitCfg.PresignIPRate,
		ipBurst:  limitCfg.PresignIPBurst,
	}, nil
}

func (l *PresignLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow charges one token against the organization bucket and, when
// that passes, one against the client address bucket.
func (l *PresignLimiter) Allow(ctx context.Context, orgSlug, clientIP string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}

	orgSlug = strings.ToLower(strings.TrimSpace(orgSlug))
	if orgSlug != "" {
		res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPresignOrg, orgSlug), l.orgRate, l.orgBurst)
		if err != nil {
			return nil, err
		}
		res.Scope = ScopeOrg
		if !res.Allowed {
			return res, nil
		}
	}

	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		return &Result{Allowed: true}, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPresignIP, clientIP), l.ipRate, l.ipBurst)
	if err != nil {
		return nil, err
	}
	res.Scope = ScopeIP
	return res, nil
}
