package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/httputil"
)

const (
	loginLimitKeyPrefix = "loginlimit:"
	loginLimitWindow    = 60 * time.Second
)

var loginLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
    return 0
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)
return 1
`)

// LoginRateLimitMiddleware throttles login attempts per client IP. The
// limiter fails open: an unavailable redis never locks everyone out.
type LoginRateLimitMiddleware struct {
	client      *redis.Client
	maxAttempts int
}

func NewLoginRateLimitMiddleware(client *redis.Client, maxAttempts int) *LoginRateLimitMiddleware {
	return &LoginRateLimitMiddleware{client: client, maxAttempts: maxAttempts}
}

func (m *LoginRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.allow(r.Context(), r.RemoteAddr) {
			log.Warn().Str("remoteAddr", r.RemoteAddr).Msg("login rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			httputil.WriteError(w, apperrors.RateLimitExceeded())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *LoginRateLimitMiddleware) allow(ctx context.Context, remoteAddr string) bool {
	now := time.Now().Unix()
	key := loginLimitKeyPrefix + remoteAddr

	result, err := loginLimitScript.Run(
		ctx, m.client, []string{key},
		now, int64(loginLimitWindow.Seconds()), m.maxAttempts,
	).Int64()
	if err != nil {
		log.Warn().Err(err).Msg("redis login rate limit check failed, allowing request")
		return true
	}
	return result == 1
}
