package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/IEEE-ISSATM-SB/PhoneCare/internal/core/port"
)

// rateLimitGuard applies a sliding-window attempt budget per scope and
// identifier. Store failures are logged and treated as allowance; the
// limiter must never lock out traffic because Redis is down.
type rateLimitGuard struct {
	store  port.RateLimitStore
	logger *zap.Logger
}

func newRateLimitGuard(store port.RateLimitStore, logger *zap.Logger) *rateLimitGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &rateLimitGuard{store: store, logger: logger}
}

func (g *rateLimitGuard) check(ctx context.Context, scope, identifier string, limit int, window time.Duration, now time.Time) error {
	if g == nil || g.store == nil || limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Hour
	}

	key := normalizeIdentifierKey(identifier)
	if key == "" {
		return nil
	}
	storageKey := fmt.Sprintf("%s:%s", scope, key)

	if err := g.store.TrimWindow(ctx, storageKey, window, now); err != nil {
		g.logger.Warn("rate limit trim failed", zap.String("scope", scope), zap.Error(err))
		return nil
	}

	count, err := g.store.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		g.logger.Warn("rate limit count failed", zap.String("scope", scope), zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := g.store.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			reset := oldest.Add(window)
			if reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			g.logger.Warn("rate limit oldest lookup failed", zap.String("scope", scope), zap.Error(err))
		}
		return &RateLimitExceededError{Scope: scope, RetryAfter: retryAfter}
	}

	if err := g.store.RecordAttempt(ctx, storageKey, now); err != nil {
		g.logger.Warn("rate limit record failed", zap.String("scope", scope), zap.Error(err))
	}

	return nil
}

func normalizeIdentifierKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
