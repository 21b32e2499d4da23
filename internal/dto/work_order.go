package dto

import "github.com/shopspring/decimal"

// ── 工单模块 DTO ──

// WorkOrderItemRequest 工单明细请求
type WorkOrderItemRequest struct {
	Name             string          `json:"name"              binding:"required,max=200"`
	InventoryItemID  *string         `json:"inventory_item_id" binding:"omitempty,uuid"`
	Type             string          `json:"type"              binding:"required,oneof=spare_part tool service"`
	Quantity         int             `json:"quantity"          binding:"required,min=1"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	RequiresApproval *bool           `json:"requires_approval"`
}

// CreateWorkOrderRequest 创建工单请求，vehicle_id 与 license_plate 二选一
type CreateWorkOrderRequest struct {
	VehicleID         *string                `json:"vehicle_id"         binding:"omitempty,uuid"`
	LicensePlate      *string                `json:"license_plate"      binding:"omitempty,max=20"`
	Description       string                 `json:"description"        binding:"required,max=2000"`
	RequestedServices []string               `json:"requested_services" binding:"omitempty,dive,max=200"`
	EstimatedCost     decimal.Decimal        `json:"estimated_cost"`
	Items             []WorkOrderItemRequest `json:"items"              binding:"omitempty,dive"`
}

// AddWorkOrderItemsRequest 追加明细请求
type AddWorkOrderItemsRequest struct {
	Items []WorkOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateWorkOrderStatusRequest 更新工单状态/最终费用请求
type UpdateWorkOrderStatusRequest struct {
	Status    *string          `json:"status"     binding:"omitempty,oneof=pending_approval in_progress completed cancelled"`
	FinalCost *decimal.Decimal `json:"final_cost"`
}

// AddWorkOrderNoteRequest 添加备注请求
type AddWorkOrderNoteRequest struct {
	Content  string  `json:"content"   binding:"required,max=5000"`
	ImageURL *string `json:"image_url" binding:"omitempty,url,max=500"`
}

// WorkOrderListRequest 工单列表查询参数
type WorkOrderListRequest struct {
	PaginationRequest
	Status       string `form:"status"        binding:"omitempty,oneof=pending_approval in_progress completed cancelled"`
	LicensePlate string `form:"license_plate" binding:"omitempty,max=20"`
}

// WorkOrderItemResponse 工单明细响应
type WorkOrderItemResponse struct {
	ID               string          `json:"id"`
	WorkOrderID      string          `json:"work_order_id"`
	Name             string          `json:"name"`
	InventoryItemID  *string         `json:"inventory_item_id,omitempty"`
	Type             string          `json:"type"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	RequiresApproval bool            `json:"requires_approval"`
	IsApproved       bool            `json:"is_approved"`
	ApprovedAt       *string         `json:"approved_at,omitempty"`
}

// WorkOrderNoteResponse 工单备注响应
type WorkOrderNoteResponse struct {
	ID        string  `json:"id"`
	AuthorID  string  `json:"author_id"`
	Content   string  `json:"content"`
	ImageURL  *string `json:"image_url,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// WorkOrderResponse 工单响应
type WorkOrderResponse struct {
	ID                string                  `json:"id"`
	ClientID          string                  `json:"client_id"`
	MechanicID        string                  `json:"mechanic_id"`
	VehicleID         string                  `json:"vehicle_id"`
	Vehicle           *VehicleBrief           `json:"vehicle,omitempty"`
	Status            string                  `json:"status"`
	Description       string                  `json:"description"`
	RequestedServices []string                `json:"requested_services"`
	EstimatedCost     decimal.Decimal         `json:"estimated_cost"`
	FinalCost         *decimal.Decimal        `json:"final_cost,omitempty"`
	Items             []WorkOrderItemResponse `json:"items"`
	Notes             []WorkOrderNoteResponse `json:"notes"`
	CreatedAt         string                  `json:"created_at"`
	UpdatedAt         string                  `json:"updated_at"`
}
