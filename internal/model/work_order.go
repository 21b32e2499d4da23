package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 工单状态
const (
	WorkOrderStatusPendingApproval = "pending_approval"
	WorkOrderStatusInProgress      = "in_progress"
	WorkOrderStatusCompleted       = "completed"
	WorkOrderStatusCancelled       = "cancelled"
)

// 工单明细类型
const (
	WorkOrderItemTypeSparePart = "spare_part"
	WorkOrderItemTypeTool      = "tool"
	WorkOrderItemTypeService   = "service"
)

// WorkOrder 工单表 — 对应 work_orders
type WorkOrder struct {
	WorkOrderID       string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"      json:"work_order_id"`
	ClientID          string           `gorm:"type:uuid;not null;index"                            json:"client_id"`
	MechanicID        string           `gorm:"type:uuid;not null;index"                            json:"mechanic_id"`
	VehicleID         string           `gorm:"type:uuid;not null"                                  json:"vehicle_id"`
	Status            string           `gorm:"type:varchar(20);not null;default:'pending_approval'" json:"status"`
	Description       string           `gorm:"type:text;not null"                                  json:"description"`
	RequestedServices StringArray      `gorm:"type:text[];not null;default:'{}'"                   json:"requested_services"`
	EstimatedCost     decimal.Decimal  `gorm:"type:numeric(10,2);not null;default:0"               json:"estimated_cost"`
	FinalCost         *decimal.Decimal `gorm:"type:numeric(10,2)"                                  json:"final_cost,omitempty"`
	Timestamps

	// 关联
	Vehicle *Vehicle        `gorm:"foreignKey:VehicleID;references:VehicleID"                       json:"vehicle,omitempty"`
	Items   []WorkOrderItem `gorm:"foreignKey:WorkOrderID;references:WorkOrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Notes   []WorkOrderNote `gorm:"foreignKey:WorkOrderID;references:WorkOrderID;constraint:OnDelete:CASCADE" json:"notes,omitempty"`
}

// TableName 指定表名
func (WorkOrder) TableName() string { return "work_orders" }

// WorkOrderItem 工单明细表 — 对应 work_order_items
// TotalPrice 在写入时按 Quantity × UnitPrice 计算，之后不再重算
type WorkOrderItem struct {
	WorkOrderItemID  string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"work_order_item_id"`
	WorkOrderID      string          `gorm:"type:uuid;not null;index"                       json:"work_order_id"`
	Name             string          `gorm:"type:varchar(200);not null"                     json:"name"`
	InventoryItemID  *string         `gorm:"type:uuid"                                      json:"inventory_item_id,omitempty"`
	Type             string          `gorm:"type:varchar(20);not null"                      json:"type"`
	Quantity         int             `gorm:"not null"                                       json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:numeric(10,2);not null"                    json:"unit_price"`
	TotalPrice       decimal.Decimal `gorm:"type:numeric(10,2);not null"                    json:"total_price"`
	RequiresApproval bool            `gorm:"not null;default:false"                         json:"requires_approval"`
	IsApproved       bool            `gorm:"not null;default:false"                         json:"is_approved"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	Timestamps

	// 关联
	WorkOrder *WorkOrder `gorm:"foreignKey:WorkOrderID;references:WorkOrderID" json:"-"`
}

// TableName 指定表名
func (WorkOrderItem) TableName() string { return "work_order_items" }

// WorkOrderNote 工单备注表 — 对应 work_order_notes
type WorkOrderNote struct {
	WorkOrderNoteID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"work_order_note_id"`
	WorkOrderID     string    `gorm:"type:uuid;not null;index"                       json:"work_order_id"`
	AuthorID        string    `gorm:"type:uuid;not null"                             json:"author_id"`
	Content         string    `gorm:"type:text;not null"                             json:"content"`
	ImageURL        *string   `gorm:"column:image_url;type:varchar(500)"             json:"image_url,omitempty"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Author *User `gorm:"foreignKey:AuthorID;references:UserID" json:"author,omitempty"`
}

// TableName 指定表名
func (WorkOrderNote) TableName() string { return "work_order_notes" }
