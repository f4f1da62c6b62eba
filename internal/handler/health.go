package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Probes DB and Redis concurrently; never exposes credentials or internals.
// A nil rdb is reported as "disabled" and does not fail the check.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus, redisStatus := "connected", "disabled"
		var g errgroup.Group
		g.Go(func() error {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				dbStatus = "error"
			}
			return nil
		})
		if rdb != nil {
			redisStatus = "connected"
			g.Go(func() error {
				if rdb.Ping(ctx).Err() != nil {
					redisStatus = "error"
				}
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		if dbStatus == "error" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
		})
	}
}
