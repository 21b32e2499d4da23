package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"garage/backend/internal/dto"
	"garage/backend/internal/service"
	"garage/backend/pkg/response"
)

// VehicleHandler 车辆模块 HTTP 处理器
type VehicleHandler struct {
	vehicleSvc service.VehicleService
}

// NewVehicleHandler 创建 VehicleHandler
func NewVehicleHandler(vehicleSvc service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleSvc: vehicleSvc}
}

// Register 客户登记车辆
// POST /api/v1/vehicles
func (h *VehicleHandler) Register(c *gin.Context) {
	var req dto.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	clientID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	vehicle, err := h.vehicleSvc.Register(c.Request.Context(), clientID, &req)
	if err != nil {
		h.handleVehicleError(c, err)
		return
	}

	response.Created(c, vehicle)
}

// ListMine 我的车辆
// GET /api/v1/vehicles/mine
func (h *VehicleHandler) ListMine(c *gin.Context) {
	clientID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.vehicleSvc.ListMine(c.Request.Context(), clientID)
	if err != nil {
		h.handleVehicleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetVehicle 车辆详情
// GET /api/v1/vehicles/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	vehicle, err := h.vehicleSvc.GetByID(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		h.handleVehicleError(c, err)
		return
	}

	response.OK(c, vehicle)
}

// handleVehicleError 统一处理车辆模块业务错误
func (h *VehicleHandler) handleVehicleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrVehicleNotFound):
		response.NotFound(c, 11101, "车辆不存在")
	case errors.Is(err, service.ErrLicensePlateExists):
		response.Conflict(c, 11102, "车牌号已登记")
	case errors.Is(err, service.ErrVehicleAccessDenied):
		response.Forbidden(c, 11103, "无权查看该车辆")
	default:
		response.InternalError(c)
	}
}
