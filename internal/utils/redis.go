package utils

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
	"turnout/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedisFromEnv：REDIS_URL 优先，否则读取 REDIS_HOST/PORT/PASS/DB；连接后立即 Ping
// 约束：两者都未配置时返回 (nil, nil)，调用方据此关闭依赖 Redis 的功能
func OpenRedisFromEnv(ctx context.Context) (*redis.Client, error) {
	var opts *redis.Options
	if u := os.Getenv("REDIS_URL"); u != "" {
		o, err := redis.ParseURL(u)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = o
	} else {
		host := os.Getenv("REDIS_HOST")
		if host == "" {
			return nil, nil
		}
		db := 0
		if v := os.Getenv("REDIS_DB"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				db = n
			}
		}
		opts = &redis.Options{Addr: host + ":" + envOr("REDIS_PORT", "6379"), Password: os.Getenv("REDIS_PASS"), DB: db}
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	logger.L().Debug("redis_env", "addr", opts.Addr, "db", opts.DB)

	rc := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}
