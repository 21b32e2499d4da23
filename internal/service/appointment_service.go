package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"garage/backend/internal/dto"
	"garage/backend/internal/events"
	"garage/backend/internal/model"
	"garage/backend/internal/repository"
	pkgerrors "garage/backend/pkg/errors"
)

// ── 预约模块业务错误 ──

var (
	ErrAppointmentNotFound       = errors.New("预约不存在")
	ErrMechanicNotFound          = errors.New("技师不存在")
	ErrNotMechanic               = errors.New("目标用户不是技师")
	ErrHourUnavailable           = errors.New("该时间已不可预约")
	ErrScheduleMismatch          = errors.New("排班与所选技师或日期不一致")
	ErrAppointmentNotPending     = errors.New("只有待确认的预约可以变更状态")
	ErrRejectionReasonRequired   = errors.New("拒绝预约必须填写原因")
	ErrAppointmentNotAssigned    = errors.New("只有被预约的技师可以处理该预约")
	ErrAppointmentNotOwner       = errors.New("只能取消自己的预约")
	ErrAppointmentNotCancellable = errors.New("该预约状态不可取消")
	ErrInvalidAppointmentStatus  = errors.New("无效的预约状态")
	ErrAppointmentForbidden      = errors.New("无权查看该预约")
)

// AppointmentService 预约业务接口
type AppointmentService interface {
	Create(ctx context.Context, clientID string, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	Accept(ctx context.Context, id, mechanicID string) (*dto.AppointmentResponse, error)
	Reject(ctx context.Context, id, mechanicID, reason string) (*dto.AppointmentResponse, error)
	// UpdateStatus Accept / Reject 的统一入口
	UpdateStatus(ctx context.Context, id, mechanicID string, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error)
	// Cancel 客户取消（删除）预约并回补时间
	Cancel(ctx context.Context, id, clientID string) error
	GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.AppointmentResponse, error)
	ListByClient(ctx context.Context, clientID string) ([]dto.AppointmentResponse, error)
	ListByMechanic(ctx context.Context, mechanicID string) ([]dto.AppointmentResponse, error)
}

type appointmentService struct {
	repo      *repository.Repository
	notifier  NotificationService
	publisher events.Publisher
	logger    *zap.Logger
}

// NewAppointmentService 创建 AppointmentService 实例
func NewAppointmentService(repo *repository.Repository, notifier NotificationService, publisher events.Publisher, logger *zap.Logger) AppointmentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &appointmentService{repo: repo, notifier: notifier, publisher: publisher, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create — 校验 → 写预约 → 收缩可约时间（同一事务，锁排班行）
// ════════════════════════════════════════════════════════════

func (s *appointmentService) Create(ctx context.Context, clientID string, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	hour := normalizeHour(req.Hour)
	if !hourPattern.MatchString(hour) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHourFormat, req.Hour)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidScheduleDate
	}

	// 1. 目标用户必须是技师
	mechanic, err := s.repo.User.GetByID(ctx, req.MechanicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMechanicNotFound
		}
		s.logger.Error("查询技师失败", zap.String("mechanic_id", req.MechanicID), zap.Error(err))
		return nil, err
	}
	if mechanic.Role != model.RoleMechanic {
		return nil, ErrNotMechanic
	}

	// 2. 车辆必须属于当前客户
	vehicle, err := s.repo.Vehicle.GetByID(ctx, req.VehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		s.logger.Error("查询车辆失败", zap.String("vehicle_id", req.VehicleID), zap.Error(err))
		return nil, err
	}
	if vehicle.ClientID != clientID {
		return nil, ErrVehicleNotOwned
	}

	// 3. 事务：锁排班 → 校验时间仍可约 → 写预约 → 移除时间
	appt := &model.Appointment{
		ClientID:    clientID,
		MechanicID:  req.MechanicID,
		VehicleID:   req.VehicleID,
		ScheduleID:  &req.ScheduleID,
		Date:        date,
		Hour:        hour,
		Status:      model.AppointmentStatusPending,
		Description: req.Description,
	}
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		schedule, err := getScheduleForUpdate(ctx, txRepo, req.ScheduleID)
		if err != nil {
			return err
		}
		if schedule.MechanicID != req.MechanicID || schedule.DateString() != req.Date {
			return ErrScheduleMismatch
		}

		hours, ok := removeHour(schedule.AvailableHours, hour)
		if !ok {
			return ErrHourUnavailable
		}

		if err := txRepo.Appointment.Create(ctx, appt); err != nil {
			return err
		}

		schedule.AvailableHours = hours
		return txRepo.Schedule.UpdateHours(ctx, schedule)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			// 排班在加锁读取后仍被改写，按时间已被占用处理
			return nil, ErrHourUnavailable
		}
		return nil, s.mapError("创建预约失败", "", err)
	}

	s.logger.Info("预约已创建",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("client_id", clientID),
		zap.String("mechanic_id", req.MechanicID),
		zap.String("date", req.Date),
		zap.String("hour", hour),
	)

	notifyBestEffort(ctx, s.notifier, s.logger, req.MechanicID,
		model.NotificationAppointmentCreated,
		"新的预约",
		fmt.Sprintf("车辆 %s 预约了 %s %s", vehicle.LicensePlate, req.Date, hour),
		map[string]interface{}{"appointmentId": appt.AppointmentID, "vehicleId": vehicle.VehicleID},
	)
	s.publishStatus(ctx, appt, model.AppointmentStatusPending)

	appt.Mechanic = mechanic
	appt.Vehicle = vehicle
	return toAppointmentResponse(appt), nil
}

// ────────────────────── Accept / Reject ──────────────────────

func (s *appointmentService) Accept(ctx context.Context, id, mechanicID string) (*dto.AppointmentResponse, error) {
	var appt *model.Appointment
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		a, err := s.lockPending(ctx, txRepo, id, mechanicID)
		if err != nil {
			return err
		}
		a.Status = model.AppointmentStatusAccepted
		if err := txRepo.Appointment.UpdateStatus(ctx, a, model.AppointmentStatusPending); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, s.mapError("确认预约失败", id, err)
	}

	notifyBestEffort(ctx, s.notifier, s.logger, appt.ClientID,
		model.NotificationAppointmentAccepted,
		"预约已确认",
		fmt.Sprintf("您 %s %s 的预约已被技师确认", appt.Date.Format(model.DateLayout), appt.Hour),
		map[string]interface{}{"appointmentId": appt.AppointmentID},
	)
	s.publishStatus(ctx, appt, appt.Status)

	return s.GetByID(ctx, id, mechanicID, model.RoleMechanic)
}

func (s *appointmentService) Reject(ctx context.Context, id, mechanicID, reason string) (*dto.AppointmentResponse, error) {
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}

	var appt *model.Appointment
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		a, err := s.lockPending(ctx, txRepo, id, mechanicID)
		if err != nil {
			return err
		}
		a.Status = model.AppointmentStatusRejected
		a.RejectionReason = &reason
		if err := txRepo.Appointment.UpdateStatus(ctx, a, model.AppointmentStatusPending); err != nil {
			return err
		}
		if err := s.releaseHour(ctx, txRepo, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, s.mapError("拒绝预约失败", id, err)
	}

	notifyBestEffort(ctx, s.notifier, s.logger, appt.ClientID,
		model.NotificationAppointmentRejected,
		"预约被拒绝",
		fmt.Sprintf("您 %s %s 的预约被拒绝：%s", appt.Date.Format(model.DateLayout), appt.Hour, reason),
		map[string]interface{}{"appointmentId": appt.AppointmentID, "reason": reason},
	)
	s.publishStatus(ctx, appt, appt.Status)

	return s.GetByID(ctx, id, mechanicID, model.RoleMechanic)
}

func (s *appointmentService) UpdateStatus(ctx context.Context, id, mechanicID string, req *dto.UpdateAppointmentStatusRequest) (*dto.AppointmentResponse, error) {
	switch req.Status {
	case model.AppointmentStatusAccepted:
		return s.Accept(ctx, id, mechanicID)
	case model.AppointmentStatusRejected:
		if req.Reason == nil || *req.Reason == "" {
			return nil, ErrRejectionReasonRequired
		}
		return s.Reject(ctx, id, mechanicID, *req.Reason)
	default:
		return nil, ErrInvalidAppointmentStatus
	}
}

// lockPending 锁定预约并校验技师身份与 pending 状态
func (s *appointmentService) lockPending(ctx context.Context, txRepo *repository.Repository, id, mechanicID string) (*model.Appointment, error) {
	appt, err := txRepo.Appointment.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.MechanicID != mechanicID {
		return nil, ErrAppointmentNotAssigned
	}
	if appt.Status != model.AppointmentStatusPending {
		return nil, ErrAppointmentNotPending
	}
	return appt, nil
}

// ────────────────────── Cancel ──────────────────────

func (s *appointmentService) Cancel(ctx context.Context, id, clientID string) error {
	var appt *model.Appointment
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		a, err := txRepo.Appointment.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.ClientID != clientID {
			return ErrAppointmentNotOwner
		}
		if a.Status != model.AppointmentStatusPending && a.Status != model.AppointmentStatusAccepted {
			return ErrAppointmentNotCancellable
		}
		if err := txRepo.Appointment.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.releaseHour(ctx, txRepo, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return s.mapError("取消预约失败", id, err)
	}

	s.logger.Info("预约已取消", zap.String("appointment_id", id), zap.String("client_id", clientID))

	notifyBestEffort(ctx, s.notifier, s.logger, appt.MechanicID,
		model.NotificationAppointmentCancelled,
		"预约已取消",
		fmt.Sprintf("%s %s 的预约已被客户取消", appt.Date.Format(model.DateLayout), appt.Hour),
		map[string]interface{}{"appointmentId": appt.AppointmentID},
	)
	s.publishStatus(ctx, appt, "cancelled")
	return nil
}

// releaseHour 将预约时间回补到排班；排班已被删除时跳过
func (s *appointmentService) releaseHour(ctx context.Context, txRepo *repository.Repository, appt *model.Appointment) error {
	if appt.ScheduleID == nil {
		s.logger.Warn("预约未关联排班，跳过回补", zap.String("appointment_id", appt.AppointmentID))
		return nil
	}
	_, err := addScheduleHour(ctx, txRepo, *appt.ScheduleID, appt.Hour, false)
	if errors.Is(err, ErrScheduleNotFound) {
		s.logger.Warn("排班已不存在，跳过回补",
			zap.String("appointment_id", appt.AppointmentID),
			zap.String("schedule_id", *appt.ScheduleID),
		)
		return nil
	}
	return err
}

// ────────────────────── 查询 ──────────────────────

func (s *appointmentService) GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.AppointmentResponse, error) {
	appt, err := s.repo.Appointment.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询预约失败", id, err)
	}
	if callerRole != model.RoleAdmin && appt.ClientID != callerID && appt.MechanicID != callerID {
		return nil, ErrAppointmentForbidden
	}
	return toAppointmentResponse(appt), nil
}

func (s *appointmentService) ListByClient(ctx context.Context, clientID string) ([]dto.AppointmentResponse, error) {
	list, err := s.repo.Appointment.ListByClient(ctx, clientID)
	if err != nil {
		s.logger.Error("查询客户预约失败", zap.String("client_id", clientID), zap.Error(err))
		return nil, err
	}
	return toAppointmentResponses(list), nil
}

func (s *appointmentService) ListByMechanic(ctx context.Context, mechanicID string) ([]dto.AppointmentResponse, error) {
	list, err := s.repo.Appointment.ListByMechanic(ctx, mechanicID)
	if err != nil {
		s.logger.Error("查询技师预约失败", zap.String("mechanic_id", mechanicID), zap.Error(err))
		return nil, err
	}
	return toAppointmentResponses(list), nil
}

// ── 辅助 ──

func (s *appointmentService) publishStatus(ctx context.Context, appt *model.Appointment, status string) {
	publishEvent(ctx, s.publisher, s.logger, events.EventAppointmentStatusChanged, appt.AppointmentID, events.AppointmentStatusPayload{
		AppointmentID: appt.AppointmentID,
		ClientID:      appt.ClientID,
		MechanicID:    appt.MechanicID,
		Date:          appt.Date.Format(model.DateLayout),
		Hour:          appt.Hour,
		Status:        status,
	})
}

func (s *appointmentService) mapError(msg, id string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrAppointmentNotFound
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		// 条件更新未命中：状态已被并发修改
		return ErrAppointmentNotPending
	case errors.Is(err, ErrScheduleNotFound),
		errors.Is(err, ErrScheduleMismatch),
		errors.Is(err, ErrHourUnavailable),
		errors.Is(err, ErrAppointmentNotAssigned),
		errors.Is(err, ErrAppointmentNotPending),
		errors.Is(err, ErrAppointmentNotOwner),
		errors.Is(err, ErrAppointmentNotCancellable):
		return err
	}
	s.logger.Error(msg, zap.String("appointment_id", id), zap.Error(err))
	return err
}

func toAppointmentResponse(a *model.Appointment) *dto.AppointmentResponse {
	resp := &dto.AppointmentResponse{
		ID:              a.AppointmentID,
		ClientID:        a.ClientID,
		Client:          toUserBrief(a.Client),
		MechanicID:      a.MechanicID,
		Mechanic:        toUserBrief(a.Mechanic),
		VehicleID:       a.VehicleID,
		ScheduleID:      a.ScheduleID,
		Date:            a.Date.Format(model.DateLayout),
		Hour:            a.Hour,
		Status:          a.Status,
		Description:     a.Description,
		RejectionReason: a.RejectionReason,
		CreatedAt:       formatTime(a.CreatedAt),
		UpdatedAt:       formatTime(a.UpdatedAt),
	}
	if a.Vehicle != nil {
		resp.Vehicle = toVehicleBrief(a.Vehicle)
	}
	return resp
}

func toAppointmentResponses(list []model.Appointment) []dto.AppointmentResponse {
	result := make([]dto.AppointmentResponse, 0, len(list))
	for i := range list {
		result = append(result, *toAppointmentResponse(&list[i]))
	}
	return result
}
