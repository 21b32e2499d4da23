package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"garage/backend/internal/dto"
	"garage/backend/internal/events"
	"garage/backend/internal/model"
	"garage/backend/internal/realtime"
	"garage/backend/internal/repository"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = errors.New("通知不存在")
)

// NotificationService 通知业务接口
type NotificationService interface {
	// Notify 持久化一条通知并尽力实时推送；推送失败不影响返回值
	Notify(ctx context.Context, userID, notifyType, title, message string, metadata map[string]interface{}) (*dto.NotificationResponse, error)
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
}

type notificationService struct {
	repo      *repository.Repository
	pusher    realtime.Pusher
	publisher events.Publisher
	logger    *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例，pusher 可为 nil
func NewNotificationService(repo *repository.Repository, pusher realtime.Pusher, publisher events.Publisher, logger *zap.Logger) NotificationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &notificationService{repo: repo, pusher: pusher, publisher: publisher, logger: logger}
}

// ────────────────────── Notify ──────────────────────

func (s *notificationService) Notify(ctx context.Context, userID, notifyType, title, message string, metadata map[string]interface{}) (*dto.NotificationResponse, error) {
	n := &model.Notification{
		UserID:   userID,
		Type:     notifyType,
		Title:    title,
		Message:  message,
		Metadata: datatypes.JSONMap(metadata),
	}
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("保存通知失败",
			zap.String("user_id", userID),
			zap.String("type", notifyType),
			zap.Error(err),
		)
		return nil, err
	}

	resp := toNotificationResponse(n)
	s.push(ctx, userID, resp)

	publishEvent(ctx, s.publisher, s.logger, events.EventNotificationCreated, n.NotificationID, events.NotificationCreatedPayload{
		NotificationID: n.NotificationID,
		UserID:         userID,
		Type:           notifyType,
	})
	return resp, nil
}

// push 实时推送；用户不在线或通道故障只记录日志
func (s *notificationService) push(ctx context.Context, userID string, resp *dto.NotificationResponse) {
	if s.pusher == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("序列化推送负载失败", zap.Error(err))
		return
	}
	if err := s.pusher.Push(ctx, userID, payload); err != nil {
		s.logger.Warn("实时推送失败",
			zap.String("user_id", userID),
			zap.String("notification_id", resp.ID),
			zap.Error(err),
		)
	}
}

// ────────────────────── 收件箱 ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, *toNotificationResponse(&list[i]))
	}
	return result, total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID string) error {
	if err := s.repo.Notification.MarkAsRead(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.Notification.MarkAllAsRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Notification.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("删除通知失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 辅助 ──

func toNotificationResponse(n *model.Notification) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		ID:        n.NotificationID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  map[string]interface{}(n.Metadata),
		IsRead:    n.IsRead,
		CreatedAt: formatTime(n.CreatedAt),
	}
}

// notifyBestEffort 供其他模块在主操作成功后调用，失败只记录告警
func notifyBestEffort(ctx context.Context, n NotificationService, logger *zap.Logger, userID, notifyType, title, message string, metadata map[string]interface{}) {
	if n == nil {
		return
	}
	if _, err := n.Notify(ctx, userID, notifyType, title, message, metadata); err != nil {
		logger.Warn("发送通知失败",
			zap.String("user_id", userID),
			zap.String("type", notifyType),
			zap.Error(err),
		)
	}
}
