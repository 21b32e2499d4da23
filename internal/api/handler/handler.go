package handler

import (
	"go.uber.org/zap"

	"garage/backend/internal/realtime"
	"garage/backend/internal/service"
	"garage/backend/pkg/redis"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Vehicle      *VehicleHandler
	Schedule     *ScheduleHandler
	Appointment  *AppointmentHandler
	WorkOrder    *WorkOrderHandler
	Inventory    *InventoryHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合；rdb 可为 nil（注销降级），hub 为 nil 时实时推送流不可用
func NewHandler(svc *service.Service, rdb *redis.Client, hub *realtime.Hub, logger *zap.Logger) *Handler {
	var revoker TokenRevoker
	if rdb != nil {
		revoker = rdb
	}
	return &Handler{
		Auth:         NewAuthHandler(revoker, logger),
		User:         NewUserHandler(svc.User),
		Vehicle:      NewVehicleHandler(svc.Vehicle),
		Schedule:     NewScheduleHandler(svc.Schedule),
		Appointment:  NewAppointmentHandler(svc.Appointment),
		WorkOrder:    NewWorkOrderHandler(svc.WorkOrder),
		Inventory:    NewInventoryHandler(svc.Inventory),
		Notification: NewNotificationHandler(svc.Notification, hub),
		Export:       NewExportHandler(svc.Export),
	}
}
