package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"garage/backend/internal/dto"
	"garage/backend/internal/service"
	"garage/backend/pkg/response"
)

// ScheduleHandler 技师排班模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// CreateSchedule 技师发布某日可约时间
// POST /api/v1/schedules
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Create(c.Request.Context(), mechanicID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, schedule)
}

// UpdateSchedule 整体替换可约时间
// PUT /api/v1/schedules/:id
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleSvc.Update(c.Request.Context(), c.Param("id"), mechanicID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// DeleteSchedule 删除排班
// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.scheduleSvc.Delete(c.Request.Context(), c.Param("id"), mechanicID); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetSchedule 排班详情
// GET /api/v1/schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.scheduleSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, schedule)
}

// ListByMechanic 指定技师的全部排班
// GET /api/v1/schedules/mechanic/:mechanicId
func (h *ScheduleHandler) ListByMechanic(c *gin.Context) {
	list, err := h.scheduleSvc.ListByMechanic(c.Request.Context(), c.Param("mechanicId"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListAvailable 今天起仍可预约的排班
// GET /api/v1/schedules/available
func (h *ScheduleHandler) ListAvailable(c *gin.Context) {
	list, err := h.scheduleSvc.ListAvailable(c.Request.Context())
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleScheduleError 统一处理排班模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	var conflict *service.HourConflictError
	switch {
	case errors.As(err, &conflict):
		response.Error(c, http.StatusConflict, 12109, "可约时间与已有预约冲突", strings.Join(conflict.Hours, ","))
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 12101, "排班不存在")
	case errors.Is(err, service.ErrScheduleExists):
		response.Conflict(c, 12102, "该日期已存在排班")
	case errors.Is(err, service.ErrEmptyHours):
		response.BadRequest(c, 12103, "可约时间不能为空")
	case errors.Is(err, service.ErrInvalidHourFormat):
		response.BadRequest(c, 12104, "时间格式无效，应为 HH:MM")
	case errors.Is(err, service.ErrHoursTooClose):
		response.BadRequest(c, 12105, "相邻可约时间间隔不能少于 60 分钟")
	case errors.Is(err, service.ErrInvalidScheduleDate):
		response.BadRequest(c, 12106, "日期格式无效")
	case errors.Is(err, service.ErrSchedulePastDate):
		response.BadRequest(c, 12107, "不能为过去的日期排班")
	case errors.Is(err, service.ErrScheduleHourPassed):
		response.BadRequest(c, 12108, "今天的可约时间必须晚于当前时间")
	case errors.Is(err, service.ErrScheduleHourConflict):
		response.Conflict(c, 12109, "可约时间与已有预约冲突")
	case errors.Is(err, service.ErrScheduleNotOwner):
		response.Forbidden(c, 12110, "只能操作自己的排班")
	case errors.Is(err, service.ErrScheduleUnchanged):
		response.BadRequest(c, 12111, "可约时间未发生变化")
	default:
		response.InternalError(c)
	}
}
