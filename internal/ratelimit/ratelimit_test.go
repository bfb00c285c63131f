package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	deny  map[string]bool
	err   error
	calls []string
}

func (f *fakeBucket) Allow(_ context.Context, key string, rate float64, burst int) (*Result, error) {
	f.calls = append(f.calls, key)
	if f.err != nil {
		return nil, f.err
	}
	if f.deny[key] {
		return &Result{Allowed: false, Limit: burst, RetryAfter: time.Duration(float64(time.Second) / rate)}, nil
	}
	return &Result{Allowed: true, Limit: burst, Remaining: burst - 1}, nil
}

func newLimiter(b bucket) *PresignLimiter {
	return &PresignLimiter{bucket: b, orgRate: 2, orgBurst: 40, ipRate: 0.5, ipBurst: 12}
}

func TestParseBucketReply(t *testing.T) {
	res, err := parseBucketReply([]interface{}{int64(1), int64(38500), int64(1700000000000)}, 2, 40)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 40, res.Limit)
	assert.Equal(t, 38, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	res, err = parseBucketReply([]interface{}{int64(0), int64(250), int64(1700000000000)}, 0.5, 12)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 1500*time.Millisecond, res.RetryAfter)
	assert.Equal(t, time.UnixMilli(1700000000000).Add(1500*time.Millisecond), res.ResetTime)

	_, err = parseBucketReply([]interface{}{int64(1)}, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidReply)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 40*time.Second, bucketTTL(2, 40))
	assert.Equal(t, 48*time.Second, bucketTTL(0.5, 12))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestTokenBucketValidatesArguments(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.Nil(t, NewTokenBucket(nil))
}

func TestPresignLimiterChecksOrgThenIP(t *testing.T) {
	fb := &fakeBucket{}
	res, err := newLimiter(fb).Allow(context.Background(), " Shine-Bros ", "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, []string{"presign:org:shine-bros", "presign:ip:203.0.113.9"}, fb.calls)
}

func TestPresignLimiterStopsAtOrgDenial(t *testing.T) {
	fb := &fakeBucket{deny: map[string]bool{"presign:org:shine-bros": true}}
	res, err := newLimiter(fb).Allow(context.Background(), "shine-bros", "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)
	assert.Equal(t, ScopeOrg, res.Scope)
	assert.Len(t, fb.calls, 1)
}

func TestPresignLimiterDeniesByIP(t *testing.T) {
	fb := &fakeBucket{deny: map[string]bool{"presign:ip:198.51.100.7": true}}
	res, err := newLimiter(fb).Allow(context.Background(), "shine-bros", "198.51.100.7")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2*time.Second, res.RetryAfter)
	assert.Equal(t, ScopeIP, res.Scope)
}

func TestPresignLimiterPropagatesBackendErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := newLimiter(&fakeBucket{err: boom}).Allow(context.Background(), "shine-bros", "")
	assert.ErrorIs(t, err, boom)
}

func TestDisabledLimiterAllows(t *testing.T) {
	limiter, err := NewPresignLimiter(config.Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "shine-bros", "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestAssessmentLockerRequiresRedis(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{AssessmentLockOn: true}}
	assert.Nil(t, NewAssessmentLocker(cfg, nil))

	var nilLocker *Locker
	_, _, err := nilLocker.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, nilLocker.Unlock(context.Background(), "k", "t"))
}
