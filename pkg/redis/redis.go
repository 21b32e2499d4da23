package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"garage/backend/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、接口限流以及通知推送的跨实例广播
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
		rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return NewFromClient(rdb, logger), nil
}

// NewFromClient 使用已有的 go-redis 客户端构造封装（测试与复用连接）
func NewFromClient(rdb *goredis.Client, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── Key 模板 ──

const (
	// token:blacklist:{jti}
	keyBlacklist = "token:blacklist:%s"
	// rate_limit:{scope}，ZSET，member 为请求唯一 ID，score 为毫秒时间戳
	keyRateLimit = "rate_limit:%s"
	// notify:user:{user_id}，Pub/Sub 频道
	channelUserNotify = "notify:user:"
)

// ── Token 黑名单 ──

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, fmt.Sprintf(keyBlacklist, jti), "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf(keyBlacklist, jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 滑动窗口限流 ──

// CheckRateLimit 基于 ZSET 的滑动窗口计数
// 返回 true 表示本次请求允许通过
func (c *Client) CheckRateLimit(ctx context.Context, scope string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(keyRateLimit, scope)
	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now), Member: uuid.NewString()})
	pipe.PExpire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() < int64(limit), nil
}

// ── 通知推送广播 ──

// PublishUserEvent 向指定用户的频道广播一条推送消息
func (c *Client) PublishUserEvent(ctx context.Context, userID string, payload []byte) error {
	return c.rdb.Publish(ctx, channelUserNotify+userID, payload).Err()
}

// SubscribeUserEvents 订阅所有用户频道，调用方负责 Close
func (c *Client) SubscribeUserEvents(ctx context.Context) *goredis.PubSub {
	return c.rdb.PSubscribe(ctx, channelUserNotify+"*")
}

// UserIDFromChannel 从频道名解析用户 ID
func UserIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, channelUserNotify) {
		return "", false
	}
	id := strings.TrimPrefix(channel, channelUserNotify)
	return id, id != ""
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
