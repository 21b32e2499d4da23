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

// ── 库存模块业务错误 ──

var (
	ErrInventoryItemNotFound = errors.New("库存项不存在")
	ErrSKUExists             = errors.New("SKU 已存在")
	ErrInvalidPrice          = errors.New("价格不能为负数")
)

// InventoryService 库存业务接口
type InventoryService interface {
	Create(ctx context.Context, req *dto.CreateInventoryItemRequest) (*dto.InventoryItemResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateInventoryItemRequest) (*dto.InventoryItemResponse, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*dto.InventoryItemResponse, error)
	List(ctx context.Context) ([]dto.InventoryItemResponse, error)
	ListLowStock(ctx context.Context) ([]dto.InventoryItemResponse, error)
	// UpdateStock 原子地执行 quantity += delta（delta 可为 0），调整后低于等于阈值时通知所有管理员
	UpdateStock(ctx context.Context, id string, delta int) (*dto.InventoryItemResponse, error)
}

type inventoryService struct {
	repo   *repository.Repository
	stock  *stockWatcher
	logger *zap.Logger
}

// NewInventoryService 创建 InventoryService 实例
func NewInventoryService(repo *repository.Repository, notifier NotificationService, publisher events.Publisher, logger *zap.Logger) InventoryService {
	return &inventoryService{
		repo:   repo,
		stock:  newStockWatcher(repo, notifier, publisher, logger),
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *inventoryService) Create(ctx context.Context, req *dto.CreateInventoryItemRequest) (*dto.InventoryItemResponse, error) {
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if err := s.ensureSKUFree(ctx, req.SKU, ""); err != nil {
		return nil, err
	}

	minStock := model.DefaultMinStock
	if req.MinStock != nil {
		minStock = *req.MinStock
	}
	item := &model.InventoryItem{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		MinStock:    minStock,
		Price:       req.Price,
	}
	if err := s.repo.Inventory.Create(ctx, item); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrSKUExists
		}
		s.logger.Error("创建库存项失败", zap.String("sku", req.SKU), zap.Error(err))
		return nil, err
	}

	s.logger.Info("库存项已创建", zap.String("id", item.InventoryItemID), zap.String("sku", item.SKU))
	return toInventoryResponse(item), nil
}

// ────────────────────── Update ──────────────────────

func (s *inventoryService) Update(ctx context.Context, id string, req *dto.UpdateInventoryItemRequest) (*dto.InventoryItemResponse, error) {
	item, err := s.repo.Inventory.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询库存项失败", id, err)
	}

	if req.SKU != nil && *req.SKU != item.SKU {
		if err := s.ensureSKUFree(ctx, *req.SKU, id); err != nil {
			return nil, err
		}
		item.SKU = *req.SKU
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.MinStock != nil {
		item.MinStock = *req.MinStock
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		item.Price = *req.Price
	}

	if err := s.repo.Inventory.Update(ctx, item); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrSKUExists
		}
		return nil, s.mapError("更新库存项失败", id, err)
	}
	return toInventoryResponse(item), nil
}

// ────────────────────── Delete ──────────────────────

func (s *inventoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Inventory.Delete(ctx, id); err != nil {
		return s.mapError("删除库存项失败", id, err)
	}
	s.logger.Info("库存项已删除", zap.String("id", id))
	return nil
}

// ────────────────────── 查询 ──────────────────────

func (s *inventoryService) GetByID(ctx context.Context, id string) (*dto.InventoryItemResponse, error) {
	item, err := s.repo.Inventory.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询库存项失败", id, err)
	}
	return toInventoryResponse(item), nil
}

func (s *inventoryService) List(ctx context.Context) ([]dto.InventoryItemResponse, error) {
	items, err := s.repo.Inventory.List(ctx)
	if err != nil {
		s.logger.Error("查询库存列表失败", zap.Error(err))
		return nil, err
	}
	return toInventoryResponses(items), nil
}

func (s *inventoryService) ListLowStock(ctx context.Context) ([]dto.InventoryItemResponse, error) {
	items, err := s.repo.Inventory.ListLowStock(ctx)
	if err != nil {
		s.logger.Error("查询低库存列表失败", zap.Error(err))
		return nil, err
	}
	return toInventoryResponses(items), nil
}

// ────────────────────── UpdateStock ──────────────────────

func (s *inventoryService) UpdateStock(ctx context.Context, id string, delta int) (*dto.InventoryItemResponse, error) {
	item, err := s.repo.Inventory.AdjustQuantity(ctx, id, delta)
	if err != nil {
		return nil, s.mapError("调整库存失败", id, err)
	}

	s.logger.Info("库存已调整",
		zap.String("id", id),
		zap.Int("delta", delta),
		zap.Int("quantity", item.Quantity),
	)
	s.stock.afterChange(ctx, item, delta)
	return toInventoryResponse(item), nil
}

// ── 辅助 ──

// ensureSKUFree 检查 SKU 未被 exceptID 以外的库存项占用
func (s *inventoryService) ensureSKUFree(ctx context.Context, sku, exceptID string) error {
	existing, err := s.repo.Inventory.GetBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("查询 SKU 失败", zap.String("sku", sku), zap.Error(err))
		return err
	}
	if existing.InventoryItemID != exceptID {
		return ErrSKUExists
	}
	return nil
}

func (s *inventoryService) mapError(msg, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInventoryItemNotFound
	}
	s.logger.Error(msg, zap.String("id", id), zap.Error(err))
	return err
}

// ════════════════════════════════════════════════════════════
// stockWatcher 库存变化后的事件投递与低库存告警
// ════════════════════════════════════════════════════════════

type stockWatcher struct {
	repo      *repository.Repository
	notifier  NotificationService
	publisher events.Publisher
	logger    *zap.Logger
}

func newStockWatcher(repo *repository.Repository, notifier NotificationService, publisher events.Publisher, logger *zap.Logger) *stockWatcher {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &stockWatcher{repo: repo, notifier: notifier, publisher: publisher, logger: logger}
}

// afterChange 在库存写入提交后调用，失败均不影响调用方
func (w *stockWatcher) afterChange(ctx context.Context, item *model.InventoryItem, delta int) {
	publishEvent(ctx, w.publisher, w.logger, events.EventStockChanged, item.InventoryItemID, events.StockChangedPayload{
		InventoryItemID: item.InventoryItemID,
		SKU:             item.SKU,
		Delta:           delta,
		Quantity:        item.Quantity,
		MinStock:        item.MinStock,
		LowStock:        item.IsLowStock(),
	})
	w.alertLowStock(ctx, item)
}

// alertLowStock quantity <= min_stock 时通知每一位管理员
func (w *stockWatcher) alertLowStock(ctx context.Context, item *model.InventoryItem) {
	if !item.IsLowStock() {
		return
	}
	admins, err := w.repo.User.ListByRole(ctx, model.RoleAdmin)
	if err != nil {
		w.logger.Warn("查询管理员失败，低库存告警未发送",
			zap.String("inventory_item_id", item.InventoryItemID),
			zap.Error(err),
		)
		return
	}

	message := fmt.Sprintf("%s（%s）当前库存 %d，已不高于最低库存 %d", item.Name, item.SKU, item.Quantity, item.MinStock)
	for _, admin := range admins {
		notifyBestEffort(ctx, w.notifier, w.logger, admin.UserID,
			model.NotificationInventoryLowStock,
			"库存不足",
			message,
			map[string]interface{}{
				"inventoryItemId": item.InventoryItemID,
				"currentStock":    item.Quantity,
			},
		)
	}
	w.logger.Info("已发送低库存告警",
		zap.String("inventory_item_id", item.InventoryItemID),
		zap.Int("quantity", item.Quantity),
		zap.Int("admins", len(admins)),
	)
}

func toInventoryResponse(i *model.InventoryItem) *dto.InventoryItemResponse {
	return &dto.InventoryItemResponse{
		ID:          i.InventoryItemID,
		SKU:         i.SKU,
		Name:        i.Name,
		Description: i.Description,
		Quantity:    i.Quantity,
		MinStock:    i.MinStock,
		Price:       i.Price,
		LowStock:    i.IsLowStock(),
		CreatedAt:   formatTime(i.CreatedAt),
		UpdatedAt:   formatTime(i.UpdatedAt),
	}
}

func toInventoryResponses(items []model.InventoryItem) []dto.InventoryItemResponse {
	result := make([]dto.InventoryItemResponse, 0, len(items))
	for i := range items {
		result = append(result, *toInventoryResponse(&items[i]))
	}
	return result
}
