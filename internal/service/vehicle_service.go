package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"garage/backend/internal/dto"
	"garage/backend/internal/model"
	"garage/backend/internal/repository"
	pkgerrors "garage/backend/pkg/errors"
)

// ── 车辆模块业务错误 ──

var (
	ErrVehicleNotFound     = errors.New("车辆不存在")
	ErrLicensePlateExists  = errors.New("车牌号已登记")
	ErrVehicleNotOwned     = errors.New("车辆不属于当前用户")
	ErrVehicleAccessDenied = errors.New("无权查看该车辆")
)

// VehicleService 车辆登记业务接口（状态只由工单流转修改，这里不提供写入）
type VehicleService interface {
	Register(ctx context.Context, clientID string, req *dto.CreateVehicleRequest) (*dto.VehicleResponse, error)
	ListMine(ctx context.Context, clientID string) ([]dto.VehicleResponse, error)
	GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.VehicleResponse, error)
}

type vehicleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewVehicleService 创建 VehicleService 实例
func NewVehicleService(repo *repository.Repository, logger *zap.Logger) VehicleService {
	return &vehicleService{repo: repo, logger: logger}
}

func (s *vehicleService) Register(ctx context.Context, clientID string, req *dto.CreateVehicleRequest) (*dto.VehicleResponse, error) {
	plate := strings.ToUpper(strings.TrimSpace(req.LicensePlate))

	_, err := s.repo.Vehicle.GetByLicensePlate(ctx, plate)
	if err == nil {
		return nil, ErrLicensePlateExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询车牌失败", zap.String("plate", plate), zap.Error(err))
		return nil, err
	}

	vehicle := &model.Vehicle{
		LicensePlate: plate,
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		Color:        req.Color,
		ClientID:     clientID,
		Status:       model.VehicleStatusAvailable,
	}
	if err := s.repo.Vehicle.Create(ctx, vehicle); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrLicensePlateExists
		}
		s.logger.Error("登记车辆失败", zap.String("client_id", clientID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("车辆已登记", zap.String("vehicle_id", vehicle.VehicleID), zap.String("plate", plate))
	return toVehicleResponse(vehicle), nil
}

func (s *vehicleService) ListMine(ctx context.Context, clientID string) ([]dto.VehicleResponse, error) {
	list, err := s.repo.Vehicle.ListByClient(ctx, clientID)
	if err != nil {
		s.logger.Error("查询客户车辆失败", zap.String("client_id", clientID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.VehicleResponse, 0, len(list))
	for i := range list {
		result = append(result, *toVehicleResponse(&list[i]))
	}
	return result, nil
}

// GetByID 车主、技师与管理员可查看
func (s *vehicleService) GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.VehicleResponse, error) {
	vehicle, err := s.repo.Vehicle.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		s.logger.Error("查询车辆失败", zap.String("vehicle_id", id), zap.Error(err))
		return nil, err
	}
	if callerRole == model.RoleClient && vehicle.ClientID != callerID {
		return nil, ErrVehicleAccessDenied
	}
	return toVehicleResponse(vehicle), nil
}

func toVehicleResponse(v *model.Vehicle) *dto.VehicleResponse {
	return &dto.VehicleResponse{
		ID:           v.VehicleID,
		LicensePlate: v.LicensePlate,
		Brand:        v.Brand,
		Model:        v.Model,
		Year:         v.Year,
		Color:        v.Color,
		ClientID:     v.ClientID,
		Status:       v.Status,
		CreatedAt:    formatTime(v.CreatedAt),
	}
}

func toVehicleBrief(v *model.Vehicle) *dto.VehicleBrief {
	return &dto.VehicleBrief{
		ID:           v.VehicleID,
		LicensePlate: v.LicensePlate,
		Brand:        v.Brand,
		Model:        v.Model,
	}
}
