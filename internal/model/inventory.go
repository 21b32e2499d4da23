package model

import "github.com/shopspring/decimal"

// DefaultMinStock 未指定时的最低库存阈值
const DefaultMinStock = 5

// InventoryItem 库存表 — 对应 inventory_items
type InventoryItem struct {
	InventoryItemID string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"inventory_item_id"`
	SKU             string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex" json:"sku"`
	Name            string          `gorm:"type:varchar(200);not null"                     json:"name"`
	Description     *string         `gorm:"type:text"                                      json:"description,omitempty"`
	Quantity        int             `gorm:"not null;default:0"                             json:"quantity"`
	MinStock        int             `gorm:"not null;default:5"                             json:"min_stock"`
	Price           decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"          json:"price"`
	Timestamps
}

// TableName 指定表名
func (InventoryItem) TableName() string { return "inventory_items" }

// IsLowStock 库存不高于阈值即视为低库存
func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.MinStock
}
