package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"garage/backend/internal/model"
	pkgerrors "garage/backend/pkg/errors"
)

// AppointmentRepository 预约数据访问接口
type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.Appointment, error)
	ListByClient(ctx context.Context, clientID string) ([]model.Appointment, error)
	ListByMechanic(ctx context.Context, mechanicID string) ([]model.Appointment, error)
	// ListActiveByMechanicAndDate 查询某技师某天 pending/accepted 的预约
	ListActiveByMechanicAndDate(ctx context.Context, mechanicID, date string) ([]model.Appointment, error)
	// ListActiveByMechanicFrom 查询某技师 fromDate 起 pending/accepted 的预约（日历导出）
	ListActiveByMechanicFrom(ctx context.Context, mechanicID, fromDate string) ([]model.Appointment, error)
	// UpdateStatus 仅当当前状态等于 fromStatus 时写入，否则返回 ErrOptimisticLock
	UpdateStatus(ctx context.Context, appt *model.Appointment, fromStatus string) error
	Delete(ctx context.Context, id string) error
}

var activeAppointmentStatuses = []string{model.AppointmentStatusPending, model.AppointmentStatusAccepted}

type appointmentRepo struct {
	db *gorm.DB
}

// NewAppointmentRepo 创建 AppointmentRepository 实例
func NewAppointmentRepo(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	return r.db.WithContext(ctx).Create(appt).Error
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Mechanic").
		Preload("Vehicle").
		Where("appointment_id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("appointment_id = ?", id).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *appointmentRepo) ListByClient(ctx context.Context, clientID string) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Mechanic").
		Preload("Vehicle").
		Where("client_id = ?", clientID).
		Order("date ASC, hour ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) ListByMechanic(ctx context.Context, mechanicID string) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Vehicle").
		Where("mechanic_id = ?", mechanicID).
		Order("date ASC, hour ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) ListActiveByMechanicAndDate(ctx context.Context, mechanicID, date string) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Where("mechanic_id = ? AND date = ? AND status IN ?", mechanicID, date, activeAppointmentStatuses).
		Order("hour ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) ListActiveByMechanicFrom(ctx context.Context, mechanicID, fromDate string) ([]model.Appointment, error) {
	var appts []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Vehicle").
		Where("mechanic_id = ? AND date >= ? AND status IN ?", mechanicID, fromDate, activeAppointmentStatuses).
		Order("date ASC, hour ASC").
		Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, appt *model.Appointment, fromStatus string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("appointment_id = ? AND status = ?", appt.AppointmentID, fromStatus).
		Updates(map[string]interface{}{
			"status":           appt.Status,
			"rejection_reason": appt.RejectionReason,
			"updated_at":       gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *appointmentRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("appointment_id = ?", id).
		Delete(&model.Appointment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
