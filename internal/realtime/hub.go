package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Hub 进程内的在线连接登记表（userID → 订阅集合）
//
// 只是易失缓存：进程重启即丢失，客户端重连会重新登记；
// 多实例部署时由 Redis Pub/Sub 把消息广播到每个实例的 Hub。
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// Subscription 单个连接的订阅句柄
type Subscription struct {
	UserID string
	C      <-chan []byte

	ch   chan []byte
	hub  *Hub
	once sync.Once
}

// NewHub 创建 Hub，buffer 为每个订阅的缓冲条数
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe 为用户登记一个新连接
func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan []byte, h.buffer)
	sub := &Subscription{UserID: userID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Close 注销连接并关闭通道，可重复调用
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.UserID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.UserID)
			}
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Deliver 向用户的所有在线连接投递消息，返回成功投递的连接数
// 连接缓冲区已满时丢弃该条消息，不阻塞调用方
func (h *Hub) Deliver(userID string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[userID] {
		select {
		case sub.ch <- payload:
			delivered++
		default:
			h.logger.Debug("推送缓冲区已满，丢弃消息", zap.String("user_id", userID))
		}
	}
	return delivered
}

// Online 用户当前是否有在线连接
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID]) > 0
}

// Shutdown 关闭所有在线连接，SSE 处理器随之退出
func (h *Hub) Shutdown() {
	h.mu.RLock()
	all := make([]*Subscription, 0)
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range all {
		sub.Close()
	}
}
