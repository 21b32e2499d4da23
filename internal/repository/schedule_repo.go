package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"garage/backend/internal/model"
	pkgerrors "garage/backend/pkg/errors"
)

// MechanicScheduleRepository 技师排班数据访问接口
type MechanicScheduleRepository interface {
	Create(ctx context.Context, schedule *model.MechanicSchedule) error
	GetByID(ctx context.Context, id string) (*model.MechanicSchedule, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁查询排班
	// 必须在事务连接上调用（通过 Repository.Transaction / WithTx 注入）
	GetByIDForUpdate(ctx context.Context, id string) (*model.MechanicSchedule, error)
	GetByMechanicAndDate(ctx context.Context, mechanicID, date string) (*model.MechanicSchedule, error)
	ListByMechanic(ctx context.Context, mechanicID string) ([]model.MechanicSchedule, error)
	// ListAvailable 返回 fromDate 及以后、可约时间非空的排班，按日期升序
	ListAvailable(ctx context.Context, fromDate string) ([]model.MechanicSchedule, error)
	// UpdateHours 带版本号校验写入时间集合，版本不匹配返回 ErrOptimisticLock
	UpdateHours(ctx context.Context, schedule *model.MechanicSchedule) error
	Delete(ctx context.Context, id string) error
}

type mechanicScheduleRepo struct {
	db *gorm.DB
}

// NewMechanicScheduleRepo 创建 MechanicScheduleRepository 实例
func NewMechanicScheduleRepo(db *gorm.DB) MechanicScheduleRepository {
	return &mechanicScheduleRepo{db: db}
}

func (r *mechanicScheduleRepo) Create(ctx context.Context, schedule *model.MechanicSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *mechanicScheduleRepo) GetByID(ctx context.Context, id string) (*model.MechanicSchedule, error) {
	var schedule model.MechanicSchedule
	err := r.db.WithContext(ctx).
		Preload("Mechanic").
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *mechanicScheduleRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.MechanicSchedule, error) {
	var schedule model.MechanicSchedule
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *mechanicScheduleRepo) GetByMechanicAndDate(ctx context.Context, mechanicID, date string) (*model.MechanicSchedule, error) {
	var schedule model.MechanicSchedule
	err := r.db.WithContext(ctx).
		Where("mechanic_id = ? AND date = ?", mechanicID, date).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *mechanicScheduleRepo) ListByMechanic(ctx context.Context, mechanicID string) ([]model.MechanicSchedule, error) {
	var schedules []model.MechanicSchedule
	err := r.db.WithContext(ctx).
		Where("mechanic_id = ?", mechanicID).
		Order("date ASC").
		Find(&schedules).Error
	return schedules, err
}

func (r *mechanicScheduleRepo) ListAvailable(ctx context.Context, fromDate string) ([]model.MechanicSchedule, error) {
	var schedules []model.MechanicSchedule
	err := r.db.WithContext(ctx).
		Preload("Mechanic").
		Where("date >= ?", fromDate).
		Where("cardinality(available_hours) > 0").
		Order("date ASC").
		Find(&schedules).Error
	return schedules, err
}

func (r *mechanicScheduleRepo) UpdateHours(ctx context.Context, schedule *model.MechanicSchedule) error {
	oldVersion := schedule.Version
	result := r.db.WithContext(ctx).
		Model(&model.MechanicSchedule{}).
		Where("schedule_id = ? AND version = ?", schedule.ScheduleID, oldVersion).
		Updates(map[string]interface{}{
			"available_hours": schedule.AvailableHours,
			"version":         oldVersion + 1,
			"updated_at":      gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	schedule.Version = oldVersion + 1
	return nil
}

func (r *mechanicScheduleRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("schedule_id = ?", id).
		Delete(&model.MechanicSchedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
