package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tastelanc/backoffice/internal/config"
)

const (
	keyAnalyticsVisitor    = "analytics:ingest:visitor:%s:%s"
	keyAnalyticsRestaurant = "analytics:ingest:restaurant:%s"
)

// AnalyticsLimiter throttles public analytics ingest per visitor and per
// restaurant. A nil or disabled limiter allows everything.
type AnalyticsLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger

	visitorRate     float64
	visitorBurst    int
	restaurantRate  float64
	restaurantBurst int
}

func NewAnalyticsLimiter(cfg config.Config, bucket *TokenBucket, log *zap.Logger) *AnalyticsLimiter {
	limits := cfg.RateLimit
	if !limits.Enabled || bucket == nil {
		return nil
	}
	return &AnalyticsLimiter{
		bucket:          bucket,
		log:             log.Named("ratelimit.analytics"),
		visitorRate:     limits.AnalyticsVisitorRate,
		visitorBurst:    limits.AnalyticsVisitorBurst,
		restaurantRate:  limits.AnalyticsRestaurantRate,
		restaurantBurst: limits.AnalyticsRestaurantBurst,
	}
}

func (l *AnalyticsLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow checks the restaurant bucket first, then the visitor bucket. Redis
// errors fail open. The returned reason is "restaurant" or "visitor" when
// denied.
func (l *AnalyticsLimiter) Allow(ctx context.Context, restaurantID, visitorID string) (*Result, string) {
	if !l.Enabled() {
		return &Result{Allowed: true}, ""
	}
	restaurantID = strings.TrimSpace(restaurantID)
	visitorID = strings.TrimSpace(visitorID)

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyAnalyticsRestaurant, restaurantID), l.restaurantRate, l.restaurantBurst)
	if err != nil {
		l.log.Warn("restaurant rate limit check failed", zap.Error(err))
		return &Result{Allowed: true}, ""
	}
	if !res.Allowed {
		return res, "restaurant"
	}
	if visitorID == "" {
		return res, ""
	}

	res, err = l.bucket.Allow(ctx, fmt.Sprintf(keyAnalyticsVisitor, restaurantID, visitorID), l.visitorRate, l.visitorBurst)
	if err != nil {
		l.log.Warn("visitor rate limit check failed", zap.Error(err))
		return &Result{Allowed: true}, ""
	}
	if !res.Allowed {
		return res, "visitor"
	}
	return res, ""
}
