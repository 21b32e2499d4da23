package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"garage/backend/internal/model"
	pkgerrors "garage/backend/pkg/errors"
)

// WorkOrderFilter 工单列表过滤条件，空字符串表示不过滤
type WorkOrderFilter struct {
	ClientID     string
	MechanicID   string
	Status       string
	LicensePlate string
	Offset       int
	Limit        int
}

// WorkOrderRepository 工单数据访问接口
type WorkOrderRepository interface {
	Create(ctx context.Context, order *model.WorkOrder) error
	// GetByID 预加载车辆、明细与备注（备注按时间倒序）
	GetByID(ctx context.Context, id string) (*model.WorkOrder, error)
	List(ctx context.Context, filter WorkOrderFilter) ([]model.WorkOrder, int64, error)
	// UpdateStatusAndCost 写入状态与最终费用（nil 表示不修改）
	UpdateStatusAndCost(ctx context.Context, order *model.WorkOrder) error
}

// WorkOrderItemRepository 工单明细数据访问接口
type WorkOrderItemRepository interface {
	Create(ctx context.Context, item *model.WorkOrderItem) error
	GetByID(ctx context.Context, id string) (*model.WorkOrderItem, error)
	// Approve 仅当明细需要审批且尚未审批时写入，否则返回 ErrOptimisticLock
	Approve(ctx context.Context, id string, at time.Time) error
}

// WorkOrderNoteRepository 工单备注数据访问接口
type WorkOrderNoteRepository interface {
	Create(ctx context.Context, note *model.WorkOrderNote) error
}

// ────────────────────── WorkOrder ──────────────────────

type workOrderRepo struct {
	db *gorm.DB
}

// NewWorkOrderRepo 创建 WorkOrderRepository 实例
func NewWorkOrderRepo(db *gorm.DB) WorkOrderRepository {
	return &workOrderRepo{db: db}
}

func (r *workOrderRepo) Create(ctx context.Context, order *model.WorkOrder) error {
	// 明细由服务层逐条写入，这里跳过关联自动保存
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *workOrderRepo) GetByID(ctx context.Context, id string) (*model.WorkOrder, error) {
	var order model.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Notes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("work_order_id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *workOrderRepo) List(ctx context.Context, filter WorkOrderFilter) ([]model.WorkOrder, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.WorkOrder{})

	if filter.ClientID != "" {
		db = db.Where("work_orders.client_id = ?", filter.ClientID)
	}
	if filter.MechanicID != "" {
		db = db.Where("work_orders.mechanic_id = ?", filter.MechanicID)
	}
	if filter.Status != "" {
		db = db.Where("work_orders.status = ?", filter.Status)
	}
	if filter.LicensePlate != "" {
		db = db.Joins("JOIN vehicles ON vehicles.vehicle_id = work_orders.vehicle_id").
			Where("vehicles.license_plate = ?", filter.LicensePlate)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.WorkOrder
	q := db.Preload("Vehicle").Preload("Items").Order("work_orders.created_at DESC")
	if filter.Limit > 0 {
		q = q.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *workOrderRepo) UpdateStatusAndCost(ctx context.Context, order *model.WorkOrder) error {
	result := r.db.WithContext(ctx).
		Model(&model.WorkOrder{}).
		Where("work_order_id = ?", order.WorkOrderID).
		Updates(map[string]interface{}{
			"status":     order.Status,
			"final_cost": order.FinalCost,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ────────────────────── WorkOrderItem ──────────────────────

type workOrderItemRepo struct {
	db *gorm.DB
}

// NewWorkOrderItemRepo 创建 WorkOrderItemRepository 实例
func NewWorkOrderItemRepo(db *gorm.DB) WorkOrderItemRepository {
	return &workOrderItemRepo{db: db}
}

func (r *workOrderItemRepo) Create(ctx context.Context, item *model.WorkOrderItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *workOrderItemRepo) GetByID(ctx context.Context, id string) (*model.WorkOrderItem, error) {
	var item model.WorkOrderItem
	err := r.db.WithContext(ctx).
		Preload("WorkOrder").
		Where("work_order_item_id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *workOrderItemRepo) Approve(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.WorkOrderItem{}).
		Where("work_order_item_id = ? AND requires_approval = ? AND is_approved = ?", id, true, false).
		Updates(map[string]interface{}{
			"is_approved": true,
			"approved_at": at,
			"updated_at":  gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// ────────────────────── WorkOrderNote ──────────────────────

type workOrderNoteRepo struct {
	db *gorm.DB
}

// NewWorkOrderNoteRepo 创建 WorkOrderNoteRepository 实例
func NewWorkOrderNoteRepo(db *gorm.DB) WorkOrderNoteRepository {
	return &workOrderNoteRepo{db: db}
}

func (r *workOrderNoteRepo) Create(ctx context.Context, note *model.WorkOrderNote) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(note).Error
}
