package realtime

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"garage/backend/pkg/redis"
)

// Pusher 实时推送通道
type Pusher interface {
	Push(ctx context.Context, userID string, payload []byte) error
}

// LocalPusher 单实例部署：直接投递到本进程 Hub
type LocalPusher struct {
	hub *Hub
}

// NewLocalPusher 创建 LocalPusher
func NewLocalPusher(hub *Hub) *LocalPusher {
	return &LocalPusher{hub: hub}
}

// Push 投递到本地 Hub；用户不在线不算错误
func (p *LocalPusher) Push(_ context.Context, userID string, payload []byte) error {
	p.hub.Deliver(userID, payload)
	return nil
}

// RedisPusher 多实例部署：经 Redis 频道广播，由各实例的 Relay 投递到本地 Hub
type RedisPusher struct {
	client *redis.Client
}

// NewRedisPusher 创建 RedisPusher
func NewRedisPusher(client *redis.Client) *RedisPusher {
	return &RedisPusher{client: client}
}

// Push 发布到用户频道
func (p *RedisPusher) Push(ctx context.Context, userID string, payload []byte) error {
	return p.client.PublishUserEvent(ctx, userID, payload)
}

// RunRedisRelay 订阅 Redis 用户频道并转发到本地 Hub，ctx 取消后返回
func RunRedisRelay(ctx context.Context, client *redis.Client, hub *Hub, logger *zap.Logger) {
	pubsub := client.SubscribeUserEvents(ctx)
	defer pubsub.Close()

	logger.Info("实时推送 Redis 转发已启动")
	RelayMessages(ctx, pubsub.Channel(), hub, logger)
	logger.Info("实时推送 Redis 转发已停止")
}

// RelayMessages 将频道消息转发到 Hub，直到 ctx 取消或消息通道关闭
func RelayMessages(ctx context.Context, msgs <-chan *goredis.Message, hub *Hub, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			userID, valid := redis.UserIDFromChannel(msg.Channel)
			if !valid {
				logger.Warn("忽略无法识别的推送频道", zap.String("channel", msg.Channel))
				continue
			}
			hub.Deliver(userID, []byte(msg.Payload))
		}
	}
}
