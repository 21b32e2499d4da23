package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"garage/backend/internal/dto"
	"garage/backend/internal/model"
	"garage/backend/internal/repository"
	pkgerrors "garage/backend/pkg/errors"
)

// ── 技师排班模块业务错误 ──

var (
	ErrScheduleNotFound     = errors.New("排班不存在")
	ErrScheduleExists       = errors.New("该日期已存在排班")
	ErrEmptyHours           = errors.New("可约时间不能为空")
	ErrInvalidHourFormat    = errors.New("时间格式无效，应为 HH:MM")
	ErrHoursTooClose        = errors.New("相邻可约时间间隔不能少于 60 分钟")
	ErrInvalidScheduleDate  = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrSchedulePastDate     = errors.New("不能为过去的日期排班")
	ErrScheduleHourPassed   = errors.New("今天的可约时间必须晚于当前时间")
	ErrScheduleHourConflict = errors.New("可约时间与已有预约冲突")
	ErrScheduleNotOwner     = errors.New("只能操作自己的排班")
	ErrScheduleUnchanged    = errors.New("可约时间未发生变化")
)

// HourConflictError 携带全部冲突时间，errors.Is 匹配 ErrScheduleHourConflict
type HourConflictError struct {
	Hours []string
}

func (e *HourConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrScheduleHourConflict.Error(), strings.Join(e.Hours, ", "))
}

func (e *HourConflictError) Unwrap() error { return ErrScheduleHourConflict }

// ScheduleService 技师排班业务接口
type ScheduleService interface {
	Create(ctx context.Context, mechanicID string, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	Update(ctx context.Context, id, mechanicID string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error)
	Delete(ctx context.Context, id, mechanicID string) error
	GetByID(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	ListByMechanic(ctx context.Context, mechanicID string) ([]dto.ScheduleResponse, error)
	// ListAvailable 今天及以后、仍有可约时间的排班，按日期升序
	ListAvailable(ctx context.Context) ([]dto.ScheduleResponse, error)
	// AddHour / RemoveHour 单独开启事务的时间增删，预约引擎在自身事务内使用包级函数
	AddHour(ctx context.Context, scheduleID, hour string) error
	RemoveHour(ctx context.Context, scheduleID, hour string) error
}

type scheduleService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, clock Clock, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, clock: clock, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *scheduleService) Create(ctx context.Context, mechanicID string, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidScheduleDate
	}

	// 同一技师同一日期只允许一条排班，先于时间校验判断
	_, err = s.repo.Schedule.GetByMechanicAndDate(ctx, mechanicID, req.Date)
	if err == nil {
		return nil, ErrScheduleExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询排班失败", zap.String("mechanic_id", mechanicID), zap.Error(err))
		return nil, err
	}

	hours, err := s.validateHours(ctx, mechanicID, req.Date, req.AvailableHours)
	if err != nil {
		return nil, err
	}

	schedule := &model.MechanicSchedule{
		MechanicID:     mechanicID,
		Date:           date,
		AvailableHours: hours,
		Version:        1,
	}
	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrScheduleExists
		}
		s.logger.Error("创建排班失败", zap.String("mechanic_id", mechanicID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("排班已创建",
		zap.String("schedule_id", schedule.ScheduleID),
		zap.String("mechanic_id", mechanicID),
		zap.String("date", req.Date),
		zap.Strings("hours", hours),
	)
	return toScheduleResponse(schedule), nil
}

// ────────────────────── Update ──────────────────────

func (s *scheduleService) Update(ctx context.Context, id, mechanicID string, req *dto.UpdateScheduleRequest) (*dto.ScheduleResponse, error) {
	var updated *model.MechanicSchedule

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		schedule, err := getScheduleForUpdate(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if schedule.MechanicID != mechanicID {
			return ErrScheduleNotOwner
		}

		hours, err := s.validateHoursWith(ctx, txRepo, mechanicID, schedule.DateString(), req.AvailableHours)
		if err != nil {
			return err
		}
		if sameHourSet(hours, schedule.AvailableHours) {
			return ErrScheduleUnchanged
		}

		schedule.AvailableHours = hours
		if err := txRepo.Schedule.UpdateHours(ctx, schedule); err != nil {
			return err
		}
		updated = schedule
		return nil
	})
	if err != nil {
		return nil, s.mapError("更新排班失败", id, err)
	}

	return toScheduleResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

func (s *scheduleService) Delete(ctx context.Context, id, mechanicID string) error {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		return s.mapError("查询排班失败", id, err)
	}
	if schedule.MechanicID != mechanicID {
		return ErrScheduleNotOwner
	}
	if err := s.repo.Schedule.Delete(ctx, id); err != nil {
		return s.mapError("删除排班失败", id, err)
	}

	s.logger.Info("排班已删除", zap.String("schedule_id", id), zap.String("mechanic_id", mechanicID))
	return nil
}

// ────────────────────── 查询 ──────────────────────

func (s *scheduleService) GetByID(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	schedule, err := s.repo.Schedule.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询排班失败", id, err)
	}
	return toScheduleResponse(schedule), nil
}

func (s *scheduleService) ListByMechanic(ctx context.Context, mechanicID string) ([]dto.ScheduleResponse, error) {
	list, err := s.repo.Schedule.ListByMechanic(ctx, mechanicID)
	if err != nil {
		s.logger.Error("查询技师排班失败", zap.String("mechanic_id", mechanicID), zap.Error(err))
		return nil, err
	}
	return toScheduleResponses(list), nil
}

func (s *scheduleService) ListAvailable(ctx context.Context) ([]dto.ScheduleResponse, error) {
	list, err := s.repo.Schedule.ListAvailable(ctx, s.clock.today())
	if err != nil {
		s.logger.Error("查询可预约排班失败", zap.Error(err))
		return nil, err
	}
	return toScheduleResponses(list), nil
}

// ────────────────────── AddHour / RemoveHour ──────────────────────

func (s *scheduleService) AddHour(ctx context.Context, scheduleID, hour string) error {
	h, err := parseHour(hour)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		_, err := addScheduleHour(ctx, txRepo, scheduleID, h, true)
		return err
	})
	if err != nil {
		return s.mapError("回补可约时间失败", scheduleID, err)
	}
	return nil
}

func (s *scheduleService) RemoveHour(ctx context.Context, scheduleID, hour string) error {
	h, err := parseHour(hour)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		_, err := removeScheduleHour(ctx, txRepo, scheduleID, h)
		return err
	})
	if err != nil {
		return s.mapError("移除可约时间失败", scheduleID, err)
	}
	return nil
}

// addScheduleHour 在调用方事务内锁定排班行并回补时间，已存在时不写入；
// checkGap 为 true 时要求与现有时间间隔不少于 60 分钟（取消预约回补时不检查）
func addScheduleHour(ctx context.Context, txRepo *repository.Repository, scheduleID, hour string, checkGap bool) (*model.MechanicSchedule, error) {
	schedule, err := getScheduleForUpdate(ctx, txRepo, scheduleID)
	if err != nil {
		return nil, err
	}
	if checkGap {
		if err := checkHourGap(schedule.AvailableHours, normalizeHour(hour)); err != nil {
			return nil, err
		}
	}
	hours, changed := addHour(schedule.AvailableHours, normalizeHour(hour))
	if !changed {
		return schedule, nil
	}
	schedule.AvailableHours = hours
	if err := txRepo.Schedule.UpdateHours(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// removeScheduleHour 在调用方事务内锁定排班行并移除时间，返回时间原本是否存在
func removeScheduleHour(ctx context.Context, txRepo *repository.Repository, scheduleID, hour string) (bool, error) {
	schedule, err := getScheduleForUpdate(ctx, txRepo, scheduleID)
	if err != nil {
		return false, err
	}
	hours, changed := removeHour(schedule.AvailableHours, normalizeHour(hour))
	if !changed {
		return false, nil
	}
	schedule.AvailableHours = hours
	if err := txRepo.Schedule.UpdateHours(ctx, schedule); err != nil {
		return false, err
	}
	return true, nil
}

func getScheduleForUpdate(ctx context.Context, txRepo *repository.Repository, id string) (*model.MechanicSchedule, error) {
	schedule, err := txRepo.Schedule.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

// ── 校验流水线 ──

func (s *scheduleService) validateHours(ctx context.Context, mechanicID, date string, raw []string) ([]string, error) {
	return s.validateHoursWith(ctx, s.repo, mechanicID, date, raw)
}

// validateHoursWith 格式 → 间隔 → 日期/当前时间 → 与未结束预约的冲突
func (s *scheduleService) validateHoursWith(ctx context.Context, repo *repository.Repository, mechanicID, date string, raw []string) ([]string, error) {
	hours, err := normalizeHours(raw)
	if err != nil {
		return nil, err
	}

	today := s.clock.today()
	switch {
	case date < today:
		return nil, ErrSchedulePastDate
	case date == today:
		nowMin := s.clock.minutesNow()
		for _, h := range hours {
			if hourMinutes(h) <= nowMin {
				return nil, fmt.Errorf("%w: %s", ErrScheduleHourPassed, h)
			}
		}
	}

	appts, err := repo.Appointment.ListActiveByMechanicAndDate(ctx, mechanicID, date)
	if err != nil {
		s.logger.Error("查询技师当日预约失败",
			zap.String("mechanic_id", mechanicID),
			zap.String("date", date),
			zap.Error(err),
		)
		return nil, err
	}
	booked := make([]string, 0, len(appts))
	for _, a := range appts {
		booked = append(booked, a.Hour)
	}
	if conflicts := conflictingHours(hours, booked); len(conflicts) > 0 {
		return nil, &HourConflictError{Hours: conflicts}
	}
	return hours, nil
}

func (s *scheduleService) mapError(msg, id string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrScheduleNotFound
	case errors.Is(err, ErrScheduleNotFound),
		errors.Is(err, ErrScheduleNotOwner),
		errors.Is(err, ErrScheduleUnchanged),
		errors.Is(err, ErrEmptyHours),
		errors.Is(err, ErrInvalidHourFormat),
		errors.Is(err, ErrHoursTooClose),
		errors.Is(err, ErrSchedulePastDate),
		errors.Is(err, ErrScheduleHourPassed),
		errors.Is(err, ErrScheduleHourConflict),
		errors.Is(err, pkgerrors.ErrOptimisticLock):
		return err
	}
	s.logger.Error(msg, zap.String("schedule_id", id), zap.Error(err))
	return err
}

// ── 转换 ──

func toScheduleResponse(s *model.MechanicSchedule) *dto.ScheduleResponse {
	hours := []string(s.AvailableHours)
	if hours == nil {
		hours = []string{}
	}
	return &dto.ScheduleResponse{
		ID:             s.ScheduleID,
		MechanicID:     s.MechanicID,
		Mechanic:       toUserBrief(s.Mechanic),
		Date:           s.DateString(),
		AvailableHours: hours,
		CreatedAt:      formatTime(s.CreatedAt),
		UpdatedAt:      formatTime(s.UpdatedAt),
	}
}

func toScheduleResponses(list []model.MechanicSchedule) []dto.ScheduleResponse {
	result := make([]dto.ScheduleResponse, 0, len(list))
	for i := range list {
		result = append(result, *toScheduleResponse(&list[i]))
	}
	return result
}
