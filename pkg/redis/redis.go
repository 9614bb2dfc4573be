package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"school-console/backend/config"
)

// Client Redis 客户端封装
// 当前用于默认作息模板缓存；后续可扩展课表快照缓存等场景
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ── 默认作息模板缓存 ──

const defaultTemplatePrefix = "template:default:"

// GetDefaultTemplate 读取机构默认模板缓存（JSON 序列化内容）
// 未命中返回 ("", nil)，调用方回源数据库
func (c *Client) GetDefaultTemplate(ctx context.Context, orgID string) (string, error) {
	val, err := c.rdb.Get(ctx, defaultTemplatePrefix+orgID).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetDefaultTemplate 写入机构默认模板缓存
func (c *Client) SetDefaultTemplate(ctx context.Context, orgID string, payload string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return c.rdb.Set(ctx, defaultTemplatePrefix+orgID, payload, ttl).Err()
}

// InvalidateDefaultTemplate 在任何模板写操作后失效缓存
func (c *Client) InvalidateDefaultTemplate(ctx context.Context, orgID string) error {
	return c.rdb.Del(ctx, defaultTemplatePrefix+orgID).Err()
}

// ── 滑动窗口限流 ──

// CheckRateLimit 基于 Sorted Set 的滑动窗口限流
// 窗口内请求数未超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, goredis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return countCmd.Val() < int64(limit), nil
}
