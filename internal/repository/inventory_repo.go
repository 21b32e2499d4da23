package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"garage/backend/internal/model"
)

// InventoryRepository 库存数据访问接口
type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	GetByID(ctx context.Context, id string) (*model.InventoryItem, error)
	GetBySKU(ctx context.Context, sku string) (*model.InventoryItem, error)
	List(ctx context.Context) ([]model.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]model.InventoryItem, error)
	Update(ctx context.Context, item *model.InventoryItem) error
	Delete(ctx context.Context, id string) error
	// AdjustQuantity 在数据库侧原子执行 quantity = quantity + delta 并返回更新后的记录
	AdjustQuantity(ctx context.Context, id string, delta int) (*model.InventoryItem, error)
}

type inventoryRepo struct {
	db *gorm.DB
}

// NewInventoryRepo 创建 InventoryRepository 实例
func NewInventoryRepo(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{db: db}
}

func (r *inventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *inventoryRepo) GetByID(ctx context.Context, id string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).Where("inventory_item_id = ?", id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepo) GetBySKU(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepo) List(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *inventoryRepo) ListLowStock(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).
		Where("quantity <= min_stock").
		Order("quantity ASC").
		Find(&items).Error
	return items, err
}

// Update 只写入描述性字段，数量只能经 AdjustQuantity 修改
func (r *inventoryRepo) Update(ctx context.Context, item *model.InventoryItem) error {
	result := r.db.WithContext(ctx).
		Model(&model.InventoryItem{}).
		Where("inventory_item_id = ?", item.InventoryItemID).
		Updates(map[string]interface{}{
			"sku":         item.SKU,
			"name":        item.Name,
			"description": item.Description,
			"min_stock":   item.MinStock,
			"price":       item.Price,
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inventoryRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("inventory_item_id = ?", id).
		Delete(&model.InventoryItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inventoryRepo) AdjustQuantity(ctx context.Context, id string, delta int) (*model.InventoryItem, error) {
	var item model.InventoryItem
	result := r.db.WithContext(ctx).
		Model(&item).
		Clauses(clause.Returning{}).
		Where("inventory_item_id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}
