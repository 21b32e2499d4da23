package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"garage/backend/internal/dto"
	"garage/backend/internal/service"
	"garage/backend/pkg/response"
)

// InventoryHandler 库存模块 HTTP 处理器
type InventoryHandler struct {
	inventorySvc service.InventoryService
}

// NewInventoryHandler 创建 InventoryHandler
func NewInventoryHandler(inventorySvc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventorySvc: inventorySvc}
}

// ListItems 库存列表
// GET /api/v1/inventory
func (h *InventoryHandler) ListItems(c *gin.Context) {
	list, err := h.inventorySvc.List(c.Request.Context())
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// ListLowStock 低库存列表
// GET /api/v1/inventory/low-stock
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	list, err := h.inventorySvc.ListLowStock(c.Request.Context())
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetItem 库存项详情
// GET /api/v1/inventory/:id
func (h *InventoryHandler) GetItem(c *gin.Context) {
	item, err := h.inventorySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}
	response.OK(c, item)
}

// CreateItem 新增库存项
// POST /api/v1/inventory
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req dto.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.inventorySvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateItem 修改库存项基础信息
// PUT /api/v1/inventory/:id
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	var req dto.UpdateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.inventorySvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}
	response.OK(c, item)
}

// DeleteItem 删除库存项
// DELETE /api/v1/inventory/:id
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	if err := h.inventorySvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleInventoryError(c, err)
		return
	}
	response.OK(c, nil)
}

// UpdateStock 库存增减
// PATCH /api/v1/inventory/:id/stock
func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	item, err := h.inventorySvc.UpdateStock(c.Request.Context(), c.Param("id"), *req.Delta)
	if err != nil {
		h.handleInventoryError(c, err)
		return
	}
	response.OK(c, item)
}

func (h *InventoryHandler) handleInventoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInventoryItemNotFound):
		response.NotFound(c, 15101, "库存项不存在")
	case errors.Is(err, service.ErrSKUExists):
		response.Conflict(c, 15102, "SKU 已存在")
	case errors.Is(err, service.ErrInvalidPrice):
		response.BadRequest(c, 15104, "价格不能为负数")
	default:
		response.InternalError(c)
	}
}
