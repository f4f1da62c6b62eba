package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedis parses redisURL and pings the server. The caller decides whether
// a failure is fatal; the API runs without Redis (no promotion cache, alerts
// only logged).
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	// the cache and the queue share the client; BRPOP workers hold connections
	opts.PoolSize = max(opts.PoolSize, 20)
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("redis conectado")
	return rdb, nil
}
