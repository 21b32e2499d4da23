package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"garage/backend/internal/dto"
	"garage/backend/internal/service"
	"garage/backend/pkg/response"
)

// AppointmentHandler 预约模块 HTTP 处理器
type AppointmentHandler struct {
	appointmentSvc service.AppointmentService
}

// NewAppointmentHandler 创建 AppointmentHandler
func NewAppointmentHandler(appointmentSvc service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentSvc: appointmentSvc}
}

// CreateAppointment 客户预约技师的某个时间
// POST /api/v1/appointments
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	clientID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.Create(c.Request.Context(), clientID, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.Created(c, appt)
}

// Accept 技师确认预约
// PATCH /api/v1/appointments/:id/accept
func (h *AppointmentHandler) Accept(c *gin.Context) {
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.Accept(c.Request.Context(), c.Param("id"), mechanicID)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// Reject 技师拒绝预约，必须填写原因
// PATCH /api/v1/appointments/:id/reject
func (h *AppointmentHandler) Reject(c *gin.Context) {
	var req dto.RejectAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13106, "拒绝预约必须填写原因")
		return
	}
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.Reject(c.Request.Context(), c.Param("id"), mechanicID, req.Reason)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// UpdateStatus accept / reject 的统一入口
// PATCH /api/v1/appointments/:id/status
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.UpdateStatus(c.Request.Context(), c.Param("id"), mechanicID, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// Cancel 客户取消预约
// DELETE /api/v1/appointments/:id
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	clientID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.appointmentSvc.Cancel(c.Request.Context(), c.Param("id"), clientID); err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetAppointment 预约详情（参与者或管理员）
// GET /api/v1/appointments/:id
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	appt, err := h.appointmentSvc.GetByID(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// ListMineAsClient 当前客户的预约
// GET /api/v1/appointments/client
func (h *AppointmentHandler) ListMineAsClient(c *gin.Context) {
	clientID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.appointmentSvc.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListMineAsMechanic 当前技师收到的预约
// GET /api/v1/appointments/mechanic
func (h *AppointmentHandler) ListMineAsMechanic(c *gin.Context) {
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.appointmentSvc.ListByMechanic(c.Request.Context(), mechanicID)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// handleAppointmentError 统一处理预约模块业务错误
func (h *AppointmentHandler) handleAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 13101, "预约不存在")
	case errors.Is(err, service.ErrMechanicNotFound):
		response.NotFound(c, 13102, "技师不存在")
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 13103, "排班不存在")
	case errors.Is(err, service.ErrVehicleNotFound):
		response.NotFound(c, 13104, "车辆不存在")
	case errors.Is(err, service.ErrNotMechanic):
		response.BadRequest(c, 13105, "目标用户不是技师")
	case errors.Is(err, service.ErrRejectionReasonRequired):
		response.BadRequest(c, 13106, "拒绝预约必须填写原因")
	case errors.Is(err, service.ErrInvalidAppointmentStatus):
		response.BadRequest(c, 13107, "无效的预约状态")
	case errors.Is(err, service.ErrInvalidHourFormat):
		response.BadRequest(c, 13108, "时间格式无效，应为 HH:MM")
	case errors.Is(err, service.ErrInvalidScheduleDate):
		response.BadRequest(c, 13109, "日期格式无效")
	case errors.Is(err, service.ErrScheduleMismatch):
		response.BadRequest(c, 13110, "排班与所选技师或日期不一致")
	case errors.Is(err, service.ErrHourUnavailable):
		response.Conflict(c, 13111, "该时间已不可预约")
	case errors.Is(err, service.ErrAppointmentNotPending):
		response.Conflict(c, 13112, "只有待确认的预约可以变更状态")
	case errors.Is(err, service.ErrAppointmentNotCancellable):
		response.Conflict(c, 13113, "该预约状态不可取消")
	case errors.Is(err, service.ErrVehicleNotOwned):
		response.Forbidden(c, 13114, "车辆不属于当前用户")
	case errors.Is(err, service.ErrAppointmentNotAssigned):
		response.Forbidden(c, 13115, "只有被预约的技师可以处理该预约")
	case errors.Is(err, service.ErrAppointmentNotOwner):
		response.Forbidden(c, 13116, "只能取消自己的预约")
	case errors.Is(err, service.ErrAppointmentForbidden):
		response.Forbidden(c, 13117, "无权查看该预约")
	default:
		response.InternalError(c)
	}
}
