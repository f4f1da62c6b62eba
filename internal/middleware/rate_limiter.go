package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"despensa/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ── Rate limiter ──────────────────────────────────────────────────────────────
// Fixed window per client IP. With Redis the counter is shared by every
// instance (INCR + EXPIRE); without it, or while Redis is failing, each
// process counts on its own.

type ventana struct {
	count int
	fin   time.Time
}

type limitador struct {
	rdb     *redis.Client
	prefijo string
	limit   int
	window  time.Duration

	mu     sync.Mutex
	locals map[string]*ventana
}

func newLimitador(rdb *redis.Client, prefijo string, limit int, window time.Duration) *limitador {
	l := &limitador{rdb: rdb, prefijo: prefijo, limit: limit, window: window, locals: make(map[string]*ventana)}
	go l.purgar(5 * time.Minute)
	return l
}

// permitir reports whether ip is still under the limit and when its window ends.
func (l *limitador) permitir(ctx context.Context, ip string) (bool, time.Duration) {
	if l.rdb != nil {
		key := l.prefijo + ip
		pipe := l.rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		ttl := pipe.TTL(ctx, key)
		_, err := pipe.Exec(ctx)
		if err == nil {
			return incr.Val() <= int64(l.limit), ttl.Val()
		}
		log.Warn().Err(err).Msg("rate limiter: redis no disponible, conteo local")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	v, ok := l.locals[ip]
	if !ok || now.After(v.fin) {
		v = &ventana{fin: now.Add(l.window)}
		l.locals[ip] = v
	}
	v.count++
	return v.count <= l.limit, v.fin.Sub(now)
}

func (l *limitador) purgar(cada time.Duration) {
	ticker := time.NewTicker(cada)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		purged := 0
		for ip, v := range l.locals {
			if now.After(v.fin) {
				delete(l.locals, ip)
				purged++
			}
		}
		remaining := len(l.locals)
		l.mu.Unlock()
		if purged > 0 {
			log.Debug().Str("limiter", l.prefijo).Int("purged", purged).Int("remaining", remaining).Msg("rate limiter entries purged")
		}
	}
}

func (l *limitador) handler(mensaje string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, resta := l.permitir(c.Request.Context(), c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(resta.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(mensaje))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter(rdb *redis.Client) gin.HandlerFunc {
	return newLimitador(rdb, "ratelimit:login:", 20, time.Minute).
		handler("Demasiados intentos de login. Intente en 1 minuto.")
}

// RateLimiter returns the general API limiter: limit requests per window per IP.
func RateLimiter(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return newLimitador(rdb, "ratelimit:api:", limit, window).
		handler("Demasiadas solicitudes. Intente nuevamente en un momento.")
}
