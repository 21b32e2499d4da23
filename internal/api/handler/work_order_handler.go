package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"garage/backend/internal/dto"
	"garage/backend/internal/service"
	"garage/backend/pkg/response"
)

// WorkOrderHandler 工单模块 HTTP 处理器
type WorkOrderHandler struct {
	workOrderSvc service.WorkOrderService
}

// NewWorkOrderHandler 创建 WorkOrderHandler
func NewWorkOrderHandler(workOrderSvc service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{workOrderSvc: workOrderSvc}
}

// CreateWorkOrder 技师开工单
// POST /api/v1/work-orders
func (h *WorkOrderHandler) CreateWorkOrder(c *gin.Context) {
	var req dto.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	order, err := h.workOrderSvc.Create(c.Request.Context(), mechanicID, &req)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.Created(c, order)
}

// AddItems 追加明细
// POST /api/v1/work-orders/:id/items
func (h *WorkOrderHandler) AddItems(c *gin.Context) {
	var req dto.AddWorkOrderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	order, err := h.workOrderSvc.AddItems(c.Request.Context(), c.Param("id"), mechanicID, &req)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, order)
}

// ApproveItem 客户审批明细
// PATCH /api/v1/work-orders/items/:itemId/approve
func (h *WorkOrderHandler) ApproveItem(c *gin.Context) {
	clientID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	item, err := h.workOrderSvc.ApproveItem(c.Request.Context(), c.Param("itemId"), clientID)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, item)
}

// UpdateStatus 更新状态和/或最终费用
// PATCH /api/v1/work-orders/:id/status
func (h *WorkOrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateWorkOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	mechanicID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	order, err := h.workOrderSvc.UpdateStatus(c.Request.Context(), c.Param("id"), mechanicID, &req)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, order)
}

// AddNote 客户或技师添加备注
// POST /api/v1/work-orders/:id/notes
func (h *WorkOrderHandler) AddNote(c *gin.Context) {
	var req dto.AddWorkOrderNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	authorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	note, err := h.workOrderSvc.AddNote(c.Request.Context(), c.Param("id"), authorID, &req)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.Created(c, note)
}

// GetWorkOrder 工单详情
// GET /api/v1/work-orders/:id
func (h *WorkOrderHandler) GetWorkOrder(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	order, err := h.workOrderSvc.GetByID(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OK(c, order)
}

// ListWorkOrders 工单列表（按角色过滤）
// GET /api/v1/work-orders
func (h *WorkOrderHandler) ListWorkOrders(c *gin.Context) {
	var req dto.WorkOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.workOrderSvc.List(c.Request.Context(), callerID, role, &req)
	if err != nil {
		h.handleWorkOrderError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// handleWorkOrderError 统一处理工单模块业务错误
func (h *WorkOrderHandler) handleWorkOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkOrderNotFound):
		response.NotFound(c, 14101, "工单不存在")
	case errors.Is(err, service.ErrWorkOrderItemNotFound):
		response.NotFound(c, 14102, "工单明细不存在")
	case errors.Is(err, service.ErrVehicleNotFound):
		response.NotFound(c, 14103, "车辆不存在")
	case errors.Is(err, service.ErrInventoryItemNotFound):
		response.NotFound(c, 14104, "库存项不存在")
	case errors.Is(err, service.ErrMechanicNotFound):
		response.NotFound(c, 14105, "技师不存在")
	case errors.Is(err, service.ErrVehicleRefRequired):
		response.BadRequest(c, 14106, "必须且只能提供车辆 ID 或车牌号之一")
	case errors.Is(err, service.ErrInvalidWorkOrderItem):
		response.BadRequest(c, 14107, "工单明细无效")
	case errors.Is(err, service.ErrInvalidWorkOrderStatus):
		response.BadRequest(c, 14108, "无效的工单状态")
	case errors.Is(err, service.ErrWorkOrderUpdateEmpty):
		response.BadRequest(c, 14109, "状态与最终费用至少提供一项")
	case errors.Is(err, service.ErrItemApprovalNotRequired):
		response.BadRequest(c, 14110, "该明细无需审批")
	case errors.Is(err, service.ErrItemAlreadyApproved):
		response.Conflict(c, 14111, "该明细已审批")
	case errors.Is(err, service.ErrNotMechanic):
		response.Forbidden(c, 14112, "只有技师可以创建工单")
	case errors.Is(err, service.ErrWorkOrderNotAssigned):
		response.Forbidden(c, 14113, "只有负责该工单的技师可以执行此操作")
	case errors.Is(err, service.ErrWorkOrderNotClient):
		response.Forbidden(c, 14114, "只有工单所属客户可以审批明细")
	case errors.Is(err, service.ErrNoteAuthorForbidden):
		response.Forbidden(c, 14115, "只有工单的客户或技师可以添加备注")
	case errors.Is(err, service.ErrWorkOrderForbidden):
		response.Forbidden(c, 14116, "无权查看该工单")
	case errors.Is(err, service.ErrInvalidCost):
		response.BadRequest(c, 14117, "费用不能为负数且最多两位小数")
	default:
		response.InternalError(c)
	}
}
