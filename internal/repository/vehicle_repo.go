package repository

import (
	"context"

	"gorm.io/gorm"

	"garage/backend/internal/model"
)

// VehicleRepository 车辆数据访问接口
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	GetByID(ctx context.Context, id string) (*model.Vehicle, error)
	GetByLicensePlate(ctx context.Context, plate string) (*model.Vehicle, error)
	ListByClient(ctx context.Context, clientID string) ([]model.Vehicle, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type vehicleRepo struct {
	db *gorm.DB
}

// NewVehicleRepo 创建 VehicleRepository 实例
func NewVehicleRepo(db *gorm.DB) VehicleRepository {
	return &vehicleRepo{db: db}
}

func (r *vehicleRepo) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *vehicleRepo) GetByID(ctx context.Context, id string) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).Where("vehicle_id = ?", id).First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepo) GetByLicensePlate(ctx context.Context, plate string) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).Where("license_plate = ?", plate).First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepo) ListByClient(ctx context.Context, clientID string) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&vehicles).Error
	return vehicles, err
}

// UpdateStatus 仅供工单流转调用
func (r *vehicleRepo) UpdateStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Vehicle{}).
		Where("vehicle_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
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
