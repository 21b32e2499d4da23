package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User          UserRepository
	Vehicle       VehicleRepository
	Schedule      MechanicScheduleRepository
	Appointment   AppointmentRepository
	Inventory     InventoryRepository
	WorkOrder     WorkOrderRepository
	WorkOrderItem WorkOrderItemRepository
	WorkOrderNote WorkOrderNoteRepository
	Notification  NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:            db,
		User:          NewUserRepo(db),
		Vehicle:       NewVehicleRepo(db),
		Schedule:      NewMechanicScheduleRepo(db),
		Appointment:   NewAppointmentRepo(db),
		Inventory:     NewInventoryRepo(db),
		WorkOrder:     NewWorkOrderRepo(db),
		WorkOrderItem: NewWorkOrderItemRepo(db),
		WorkOrderNote: NewWorkOrderNoteRepo(db),
		Notification:  NewNotificationRepo(db),
	}
}

// BeginTx 开启事务
// 未注入数据库连接（单元测试使用 mock 聚合）时返回 nil 事务，调用方需判空
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在单个事务中执行 fn，fn 返回错误或 panic 时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
