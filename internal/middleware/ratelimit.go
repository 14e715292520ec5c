package middleware

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fathima-sithara/snapshare/internal/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const msgTooMany = "Too many requests from this IP, please try again later"

// RateLimiter is a fixed-window counter shared by every instance through
// Redis.
type RateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
	log    *zap.Logger
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window, log: logger}
}

// MiddlewareByKey counts requests per key. When Redis is unreachable the
// request is let through.
func (r *RateLimiter) MiddlewareByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		redisKey := fmt.Sprintf("%s:%s", r.Prefix, keyFunc(c))
		count, err := r.Redis.Incr(ctx, redisKey).Result()
		if err != nil {
			r.log.Warn("rate limiter unavailable", zap.String("key", redisKey), zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			if err := r.Redis.Expire(ctx, redisKey, r.Window).Err(); err != nil {
				// a counter without a TTL would lock the key out for good
				r.log.Warn("rate limiter expire failed", zap.String("key", redisKey), zap.Error(err))
				r.Redis.Del(ctx, redisKey)
			}
		}
		if count > int64(r.Limit) {
			return errs.RateLimited(msgTooMany)
		}
		return c.Next()
	}
}

// KeyByIPAndRoute scopes a limit to one client on one route.
func KeyByIPAndRoute(c *fiber.Ctx) string {
	return ClientIP(c) + ":" + c.Route().Path
}

// IPRateLimiter is a per-process token bucket per client address.
type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	log      *zap.Logger
}

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func NewIPRateLimiter(perMinute, burst int, logger *zap.Logger) *IPRateLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &IPRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: burst,
		log:   logger,
	}
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now()
	v, _ := l.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: now})
	vi := v.(*visitor)
	vi.mu.Lock()
	vi.lastSeen = now
	vi.mu.Unlock()
	return vi.limiter
}

// Cleanup drops idle visitors every minute until ctx is done.
func (l *IPRateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-5 * time.Minute)
			l.visitors.Range(func(k, v any) bool {
				vi := v.(*visitor)
				vi.mu.Lock()
				idle := vi.lastSeen.Before(cutoff)
				vi.mu.Unlock()
				if idle {
					l.visitors.Delete(k)
				}
				return true
			})
		}
	}
}

func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := ClientIP(c)
		if !l.getLimiter(ip).Allow() {
			l.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Path()))
			return errs.RateLimited(msgTooMany)
		}
		return c.Next()
	}
}

func ClientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
