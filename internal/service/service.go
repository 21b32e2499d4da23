package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"garage/backend/config"
	"garage/backend/internal/dto"
	"garage/backend/internal/events"
	"garage/backend/internal/model"
	"garage/backend/internal/realtime"
	"garage/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Schedule     ScheduleService
	Appointment  AppointmentService
	WorkOrder    WorkOrderService
	Inventory    InventoryService
	Notification NotificationService
	Vehicle      VehicleService
	User         UserService
	Export       ExportService
}

// NewService 创建 Service 聚合
// pusher 为 nil 表示关闭实时推送；publisher 为 nil 时使用 events.NopPublisher
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	pusher realtime.Pusher,
	publisher events.Publisher,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	clk := NewClock(cfg.Shop.Location())

	notification := NewNotificationService(repo, pusher, publisher, logger)
	inventory := NewInventoryService(repo, notification, publisher, logger)

	return &Service{
		Schedule:     NewScheduleService(repo, clk, logger),
		Appointment:  NewAppointmentService(repo, notification, publisher, logger),
		WorkOrder:    NewWorkOrderService(repo, notification, publisher, clk, logger),
		Inventory:    inventory,
		Notification: notification,
		Vehicle:      NewVehicleService(repo, logger),
		User:         NewUserService(repo, logger),
		Export:       NewExportService(repo, clk, logger),
	}
}

// ── 时钟 ──

// Clock 门店时钟：判断“今天”与当前时间都以门店时区为准
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock 使用系统时间创建门店时钟
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

func (c Clock) now() time.Time {
	return c.Now().In(c.Location)
}

// today 门店时区下的当前日期 YYYY-MM-DD
func (c Clock) today() string {
	return c.now().Format(model.DateLayout)
}

// minutesNow 门店时区下自零点起的分钟数
func (c Clock) minutesNow() int {
	n := c.now()
	return n.Hour()*60 + n.Minute()
}

// ── 通用辅助 ──

// parseDate 解析 YYYY-MM-DD，日期按 UTC 零点存储
func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}

// publishEvent 尽力投递领域事件，失败只记录日志
func publishEvent(ctx context.Context, pub events.Publisher, logger *zap.Logger, eventType, correlationID string, payload any) {
	env, err := events.NewEnvelope(eventType, correlationID, payload)
	if err == nil {
		err = pub.Publish(ctx, env)
	}
	if err != nil {
		logger.Warn("领域事件投递失败",
			zap.String("event_type", eventType),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{ID: u.UserID, Name: u.Name, Role: u.Role}
}
