package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginGuard 基于 Redis 做登录限流与失败锁定。redis 为空时不做任何限制。
type LoginGuard struct {
	redis         redis.UniversalClient
	limitPerHour  int
	lockThreshold int
	lockTTL       time.Duration
	now           func() time.Time
}

// NewLoginGuard 构造 LoginGuard。
func NewLoginGuard(client redis.UniversalClient, limitPerHour, lockThreshold int, lockTTL time.Duration) *LoginGuard {
	return &LoginGuard{
		redis:         client,
		limitPerHour:  limitPerHour,
		lockThreshold: lockThreshold,
		lockTTL:       lockTTL,
		now:           time.Now,
	}
}

type guardVerdict int

const (
	guardAllow guardVerdict = iota
	guardRateLimited
	guardLocked
)

// Check 统计本小时内 scope+IP+邮箱 的尝试次数，并检查账号是否被锁定。
// Redis 出错时放行。
func (g *LoginGuard) Check(ctx context.Context, scope, ip, email string) guardVerdict {
	if g == nil || g.redis == nil {
		return guardAllow
	}
	email = strings.ToLower(email)

	if g.limitPerHour > 0 {
		rateKey := "rate:" + scope + ":" + ip + ":" + email + ":" + g.now().UTC().Format("2006010215")
		count, err := incrWithTTL(ctx, g.redis, rateKey, time.Hour)
		if err != nil {
			slog.Default().Warn("login rate counter unavailable", slog.Any("error", err))
		} else if count > int64(g.limitPerHour) {
			return guardRateLimited
		}
	}

	if scope == "login" {
		if ttl, err := g.redis.TTL(ctx, lockKey(email)).Result(); err == nil && ttl > 0 {
			return guardLocked
		}
	}
	return guardAllow
}

// RecordFailure 累加密码失败次数，达到阈值后锁定账号 lockTTL。
func (g *LoginGuard) RecordFailure(ctx context.Context, email string) {
	if g == nil || g.redis == nil || g.lockThreshold <= 0 {
		return
	}
	email = strings.ToLower(email)
	count, err := incrWithTTL(ctx, g.redis, failKey(email), g.lockTTL)
	if err != nil {
		return
	}
	if count >= int64(g.lockThreshold) {
		_ = g.redis.Set(ctx, lockKey(email), "1", g.lockTTL).Err()
	}
}

// Reset 在登录成功后清理失败计数。
func (g *LoginGuard) Reset(ctx context.Context, email string) {
	if g == nil || g.redis == nil {
		return
	}
	_ = g.redis.Del(ctx, failKey(strings.ToLower(email))).Err()
}

func lockKey(email string) string { return "lock:login:" + email }
func failKey(email string) string { return "lock:login:fail:" + email }
