package model

import (
	"time"

	"gorm.io/datatypes"
)

// 通知类型
const (
	NotificationAppointmentCreated     = "appointment_created"
	NotificationAppointmentAccepted    = "appointment_accepted"
	NotificationAppointmentRejected    = "appointment_rejected"
	NotificationAppointmentCancelled   = "appointment_cancelled"
	NotificationWorkOrderCreated       = "work_order_created"
	NotificationWorkOrderStatusChanged = "work_order_status_changed"
	NotificationItemRequiresApproval   = "item_requires_approval"
	NotificationNoteAdded              = "note_added"
	NotificationInventoryLowStock      = "inventory_low_stock"
)

// Notification 通知消息表 — 对应 notifications
type Notification struct {
	NotificationID string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string            `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Type           string            `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string            `gorm:"type:varchar(200);not null"                     json:"title"`
	Message        string            `gorm:"type:text;not null"                             json:"message"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"                                     json:"metadata,omitempty"`
	IsRead         bool              `gorm:"not null;default:false"                         json:"is_read"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
