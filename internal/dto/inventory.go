package dto

import "github.com/shopspring/decimal"

// ── 库存模块 DTO ──

// CreateInventoryItemRequest 创建库存项请求
type CreateInventoryItemRequest struct {
	SKU         string          `json:"sku"         binding:"required,max=64"`
	Name        string          `json:"name"        binding:"required,max=200"`
	Description *string         `json:"description" binding:"omitempty,max=2000"`
	Quantity    int             `json:"quantity"    binding:"min=0"`
	MinStock    *int            `json:"min_stock"   binding:"omitempty,min=0"`
	Price       decimal.Decimal `json:"price"`
}

// UpdateInventoryItemRequest 更新库存项请求（数量只能经库存调整接口修改）
type UpdateInventoryItemRequest struct {
	SKU         *string          `json:"sku"         binding:"omitempty,max=64"`
	Name        *string          `json:"name"        binding:"omitempty,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	MinStock    *int             `json:"min_stock"   binding:"omitempty,min=0"`
	Price       *decimal.Decimal `json:"price"`
}

// AdjustStockRequest 库存增减请求，delta 可正可负
type AdjustStockRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

// InventoryItemResponse 库存项响应
type InventoryItemResponse struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	MinStock    int             `json:"min_stock"`
	Price       decimal.Decimal `json:"price"`
	LowStock    bool            `json:"low_stock"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}
