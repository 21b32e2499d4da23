package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"garage/backend/internal/dto"
	"garage/backend/internal/events"
	"garage/backend/internal/model"
	"garage/backend/internal/repository"
	pkgerrors "garage/backend/pkg/errors"
)

// ── 工单模块业务错误 ──

var (
	ErrWorkOrderNotFound       = errors.New("工单不存在")
	ErrVehicleRefRequired      = errors.New("必须且只能提供车辆 ID 或车牌号之一")
	ErrWorkOrderNotAssigned    = errors.New("只有负责该工单的技师可以执行此操作")
	ErrWorkOrderItemNotFound   = errors.New("工单明细不存在")
	ErrWorkOrderNotClient      = errors.New("只有工单所属客户可以审批明细")
	ErrItemApprovalNotRequired = errors.New("该明细无需审批")
	ErrItemAlreadyApproved     = errors.New("该明细已审批")
	ErrNoteAuthorForbidden     = errors.New("只有工单的客户或技师可以添加备注")
	ErrInvalidWorkOrderStatus  = errors.New("无效的工单状态")
	ErrWorkOrderUpdateEmpty    = errors.New("状态与最终费用至少提供一项")
	ErrWorkOrderForbidden      = errors.New("无权查看该工单")
	ErrInvalidWorkOrderItem    = errors.New("工单明细无效")
	ErrInvalidCost             = errors.New("费用不能为负数且最多两位小数")
)

var workOrderStatuses = map[string]bool{
	model.WorkOrderStatusPendingApproval: true,
	model.WorkOrderStatusInProgress:      true,
	model.WorkOrderStatusCompleted:       true,
	model.WorkOrderStatusCancelled:       true,
}

var workOrderItemTypes = map[string]bool{
	model.WorkOrderItemTypeSparePart: true,
	model.WorkOrderItemTypeTool:      true,
	model.WorkOrderItemTypeService:   true,
}

// WorkOrderService 工单业务接口
type WorkOrderService interface {
	Create(ctx context.Context, mechanicID string, req *dto.CreateWorkOrderRequest) (*dto.WorkOrderResponse, error)
	AddItems(ctx context.Context, id, mechanicID string, req *dto.AddWorkOrderItemsRequest) (*dto.WorkOrderResponse, error)
	ApproveItem(ctx context.Context, itemID, clientID string) (*dto.WorkOrderItemResponse, error)
	UpdateStatus(ctx context.Context, id, mechanicID string, req *dto.UpdateWorkOrderStatusRequest) (*dto.WorkOrderResponse, error)
	AddNote(ctx context.Context, id, authorID string, req *dto.AddWorkOrderNoteRequest) (*dto.WorkOrderNoteResponse, error)
	GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.WorkOrderResponse, error)
	// List 管理员看全部，技师/客户只看自己参与的
	List(ctx context.Context, callerID, callerRole string, req *dto.WorkOrderListRequest) ([]dto.WorkOrderResponse, int64, error)
}

type workOrderService struct {
	repo      *repository.Repository
	notifier  NotificationService
	publisher events.Publisher
	stock     *stockWatcher
	clock     Clock
	logger    *zap.Logger
}

// NewWorkOrderService 创建 WorkOrderService 实例
func NewWorkOrderService(repo *repository.Repository, notifier NotificationService, publisher events.Publisher, clock Clock, logger *zap.Logger) WorkOrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &workOrderService{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		stock:     newStockWatcher(repo, notifier, publisher, logger),
		clock:     clock,
		logger:    logger,
	}
}

// stockChange 事务内发生的库存扣减，提交后统一做告警
type stockChange struct {
	item  *model.InventoryItem
	delta int
}

// ════════════════════════════════════════════════════════════
// Create — 工单 + 明细 + 库存扣减 + 车辆状态（同一事务）
// ════════════════════════════════════════════════════════════

func (s *workOrderService) Create(ctx context.Context, mechanicID string, req *dto.CreateWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	if err := s.ensureMechanic(ctx, mechanicID); err != nil {
		return nil, err
	}
	if !isMoney(req.EstimatedCost) {
		return nil, ErrInvalidCost
	}
	if err := validateItemRequests(req.Items); err != nil {
		return nil, err
	}
	vehicle, err := s.resolveVehicle(ctx, req.VehicleID, req.LicensePlate)
	if err != nil {
		return nil, err
	}

	order := &model.WorkOrder{
		ClientID:          vehicle.ClientID,
		MechanicID:        mechanicID,
		VehicleID:         vehicle.VehicleID,
		Status:            model.WorkOrderStatusPendingApproval,
		Description:       req.Description,
		RequestedServices: model.StringArray(req.RequestedServices),
		EstimatedCost:     req.EstimatedCost,
	}
	if order.RequestedServices == nil {
		order.RequestedServices = model.StringArray{}
	}

	var changes []stockChange
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.WorkOrder.Create(ctx, order); err != nil {
			return err
		}
		var err error
		if _, changes, err = applyItems(ctx, txRepo, order.WorkOrderID, req.Items); err != nil {
			return err
		}
		return txRepo.Vehicle.UpdateStatus(ctx, vehicle.VehicleID, model.VehicleStatusInService)
	})
	if err != nil {
		return nil, s.mapError("创建工单失败", "", err)
	}

	s.logger.Info("工单已创建",
		zap.String("work_order_id", order.WorkOrderID),
		zap.String("mechanic_id", mechanicID),
		zap.String("vehicle_id", vehicle.VehicleID),
		zap.Int("items", len(req.Items)),
	)

	s.afterStockChanges(ctx, changes)
	notifyBestEffort(ctx, s.notifier, s.logger, order.ClientID,
		model.NotificationWorkOrderCreated,
		"已创建维修工单",
		fmt.Sprintf("您的车辆 %s 已开始维修", vehicle.LicensePlate),
		map[string]interface{}{"workOrderId": order.WorkOrderID, "vehicleId": vehicle.VehicleID},
	)
	s.publishOrder(ctx, events.EventWorkOrderCreated, order)

	return s.load(ctx, order.WorkOrderID)
}

// ────────────────────── AddItems ──────────────────────

func (s *workOrderService) AddItems(ctx context.Context, id, mechanicID string, req *dto.AddWorkOrderItemsRequest) (*dto.WorkOrderResponse, error) {
	if err := validateItemRequests(req.Items); err != nil {
		return nil, err
	}
	order, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询工单失败", id, err)
	}
	if order.MechanicID != mechanicID {
		return nil, ErrWorkOrderNotAssigned
	}

	var (
		created []model.WorkOrderItem
		changes []stockChange
	)
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		var err error
		created, changes, err = applyItems(ctx, txRepo, id, req.Items)
		return err
	})
	if err != nil {
		return nil, s.mapError("追加工单明细失败", id, err)
	}

	s.afterStockChanges(ctx, changes)

	var pending []string
	for _, item := range created {
		if item.RequiresApproval {
			pending = append(pending, item.Name)
		}
	}
	if len(pending) > 0 {
		notifyBestEffort(ctx, s.notifier, s.logger, order.ClientID,
			model.NotificationItemRequiresApproval,
			"有明细等待您审批",
			fmt.Sprintf("工单新增了需要审批的项目：%s", strings.Join(pending, "、")),
			map[string]interface{}{"workOrderId": id},
		)
	}

	return s.load(ctx, id)
}

// applyItems 逐条扣减库存并写入明细；须在事务内调用，任一失败整体回滚
func applyItems(ctx context.Context, txRepo *repository.Repository, orderID string, reqs []dto.WorkOrderItemRequest) ([]model.WorkOrderItem, []stockChange, error) {
	items := make([]model.WorkOrderItem, 0, len(reqs))
	var changes []stockChange

	for _, r := range reqs {
		if r.InventoryItemID != nil && *r.InventoryItemID != "" {
			inv, err := txRepo.Inventory.AdjustQuantity(ctx, *r.InventoryItemID, -r.Quantity)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, nil, fmt.Errorf("%w: %s", ErrInventoryItemNotFound, *r.InventoryItemID)
				}
				return nil, nil, err
			}
			changes = append(changes, stockChange{item: inv, delta: -r.Quantity})
		}

		item := model.WorkOrderItem{
			WorkOrderID:      orderID,
			Name:             r.Name,
			InventoryItemID:  r.InventoryItemID,
			Type:             r.Type,
			Quantity:         r.Quantity,
			UnitPrice:        r.UnitPrice,
			TotalPrice:       r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity))),
			RequiresApproval: r.RequiresApproval != nil && *r.RequiresApproval,
		}
		if err := txRepo.WorkOrderItem.Create(ctx, &item); err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}
	return items, changes, nil
}

func validateItemRequests(reqs []dto.WorkOrderItemRequest) error {
	for _, r := range reqs {
		if r.Quantity <= 0 || !workOrderItemTypes[r.Type] || !isMoney(r.UnitPrice) {
			return fmt.Errorf("%w: %s", ErrInvalidWorkOrderItem, r.Name)
		}
	}
	return nil
}

// isMoney 金额非负且最多两位小数，与 numeric(10,2) 列一致
func isMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}

// ────────────────────── ApproveItem ──────────────────────

func (s *workOrderService) ApproveItem(ctx context.Context, itemID, clientID string) (*dto.WorkOrderItemResponse, error) {
	item, err := s.repo.WorkOrderItem.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderItemNotFound
		}
		s.logger.Error("查询工单明细失败", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}
	if item.WorkOrder == nil || item.WorkOrder.ClientID != clientID {
		return nil, ErrWorkOrderNotClient
	}
	if !item.RequiresApproval {
		return nil, ErrItemApprovalNotRequired
	}
	if item.IsApproved {
		return nil, ErrItemAlreadyApproved
	}

	at := s.clock.Now().UTC()
	if err := s.repo.WorkOrderItem.Approve(ctx, itemID, at); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrItemAlreadyApproved
		}
		s.logger.Error("审批工单明细失败", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}

	item.IsApproved = true
	item.ApprovedAt = &at
	s.logger.Info("工单明细已审批", zap.String("item_id", itemID), zap.String("client_id", clientID))
	return toWorkOrderItemResponse(item), nil
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *workOrderService) UpdateStatus(ctx context.Context, id, mechanicID string, req *dto.UpdateWorkOrderStatusRequest) (*dto.WorkOrderResponse, error) {
	if req.Status == nil && req.FinalCost == nil {
		return nil, ErrWorkOrderUpdateEmpty
	}
	if req.Status != nil && !workOrderStatuses[*req.Status] {
		return nil, ErrInvalidWorkOrderStatus
	}
	if req.FinalCost != nil && !isMoney(*req.FinalCost) {
		return nil, ErrInvalidCost
	}

	order, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询工单失败", id, err)
	}
	if order.MechanicID != mechanicID {
		return nil, ErrWorkOrderNotAssigned
	}

	statusChanged := req.Status != nil && *req.Status != order.Status
	if req.Status != nil {
		order.Status = *req.Status
	}
	if req.FinalCost != nil {
		order.FinalCost = req.FinalCost
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.WorkOrder.UpdateStatusAndCost(ctx, order); err != nil {
			return err
		}
		if statusChanged && order.Status == model.WorkOrderStatusCompleted {
			return txRepo.Vehicle.UpdateStatus(ctx, order.VehicleID, model.VehicleStatusReadyForPickup)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapError("更新工单状态失败", id, err)
	}

	if statusChanged {
		s.logger.Info("工单状态已变更", zap.String("work_order_id", id), zap.String("status", order.Status))
		message := fmt.Sprintf("您的工单状态已更新为 %s", order.Status)
		if order.Status == model.WorkOrderStatusCompleted {
			message = "您的车辆已维修完成，可以取车"
		}
		notifyBestEffort(ctx, s.notifier, s.logger, order.ClientID,
			model.NotificationWorkOrderStatusChanged,
			"工单状态更新",
			message,
			map[string]interface{}{"workOrderId": id, "status": order.Status},
		)
		s.publishOrder(ctx, events.EventWorkOrderStatusChanged, order)
	}

	return s.load(ctx, id)
}

// ────────────────────── AddNote ──────────────────────

func (s *workOrderService) AddNote(ctx context.Context, id, authorID string, req *dto.AddWorkOrderNoteRequest) (*dto.WorkOrderNoteResponse, error) {
	order, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询工单失败", id, err)
	}

	var recipient string
	switch authorID {
	case order.ClientID:
		recipient = order.MechanicID
	case order.MechanicID:
		recipient = order.ClientID
	default:
		return nil, ErrNoteAuthorForbidden
	}

	note := &model.WorkOrderNote{
		WorkOrderID: id,
		AuthorID:    authorID,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
	}
	if err := s.repo.WorkOrderNote.Create(ctx, note); err != nil {
		s.logger.Error("添加工单备注失败", zap.String("work_order_id", id), zap.Error(err))
		return nil, err
	}

	notifyBestEffort(ctx, s.notifier, s.logger, recipient,
		model.NotificationNoteAdded,
		"工单有新备注",
		req.Content,
		map[string]interface{}{"workOrderId": id, "noteId": note.WorkOrderNoteID},
	)
	return toWorkOrderNoteResponse(note), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *workOrderService) GetByID(ctx context.Context, id, callerID, callerRole string) (*dto.WorkOrderResponse, error) {
	order, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询工单失败", id, err)
	}
	if callerRole != model.RoleAdmin && order.ClientID != callerID && order.MechanicID != callerID {
		return nil, ErrWorkOrderForbidden
	}
	return toWorkOrderResponse(order), nil
}

func (s *workOrderService) List(ctx context.Context, callerID, callerRole string, req *dto.WorkOrderListRequest) ([]dto.WorkOrderResponse, int64, error) {
	filter := repository.WorkOrderFilter{
		Status:       req.Status,
		LicensePlate: strings.ToUpper(strings.TrimSpace(req.LicensePlate)),
		Offset:       req.GetOffset(),
		Limit:        req.GetPageSize(),
	}
	switch callerRole {
	case model.RoleAdmin:
	case model.RoleMechanic:
		filter.MechanicID = callerID
	default:
		filter.ClientID = callerID
	}

	orders, total, err := s.repo.WorkOrder.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询工单列表失败", zap.String("caller_id", callerID), zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.WorkOrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, *toWorkOrderResponse(&orders[i]))
	}
	return result, total, nil
}

// ── 辅助 ──

func (s *workOrderService) ensureMechanic(ctx context.Context, userID string) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMechanicNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	if user.Role != model.RoleMechanic {
		return ErrNotMechanic
	}
	return nil
}

// resolveVehicle 按 ID 或车牌查找车辆，两者必须恰好提供一个
func (s *workOrderService) resolveVehicle(ctx context.Context, vehicleID, plate *string) (*model.Vehicle, error) {
	hasID := vehicleID != nil && *vehicleID != ""
	hasPlate := plate != nil && strings.TrimSpace(*plate) != ""
	if hasID == hasPlate {
		return nil, ErrVehicleRefRequired
	}

	var (
		vehicle *model.Vehicle
		err     error
	)
	if hasID {
		vehicle, err = s.repo.Vehicle.GetByID(ctx, *vehicleID)
	} else {
		vehicle, err = s.repo.Vehicle.GetByLicensePlate(ctx, strings.ToUpper(strings.TrimSpace(*plate)))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		s.logger.Error("查询车辆失败", zap.Error(err))
		return nil, err
	}
	return vehicle, nil
}

func (s *workOrderService) afterStockChanges(ctx context.Context, changes []stockChange) {
	for _, c := range changes {
		s.stock.afterChange(ctx, c.item, c.delta)
	}
}

// load 写操作完成后重新读取完整工单
func (s *workOrderService) load(ctx context.Context, id string) (*dto.WorkOrderResponse, error) {
	order, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError("查询工单失败", id, err)
	}
	return toWorkOrderResponse(order), nil
}

func (s *workOrderService) publishOrder(ctx context.Context, eventType string, order *model.WorkOrder) {
	publishEvent(ctx, s.publisher, s.logger, eventType, order.WorkOrderID, events.WorkOrderPayload{
		WorkOrderID: order.WorkOrderID,
		ClientID:    order.ClientID,
		MechanicID:  order.MechanicID,
		VehicleID:   order.VehicleID,
		Status:      order.Status,
	})
}

func (s *workOrderService) mapError(msg, id string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrWorkOrderNotFound
	case errors.Is(err, ErrInventoryItemNotFound):
		return err
	}
	s.logger.Error(msg, zap.String("work_order_id", id), zap.Error(err))
	return err
}

// ── 转换 ──

func toWorkOrderResponse(o *model.WorkOrder) *dto.WorkOrderResponse {
	services := []string(o.RequestedServices)
	if services == nil {
		services = []string{}
	}
	resp := &dto.WorkOrderResponse{
		ID:                o.WorkOrderID,
		ClientID:          o.ClientID,
		MechanicID:        o.MechanicID,
		VehicleID:         o.VehicleID,
		Status:            o.Status,
		Description:       o.Description,
		RequestedServices: services,
		EstimatedCost:     o.EstimatedCost,
		FinalCost:         o.FinalCost,
		Items:             make([]dto.WorkOrderItemResponse, 0, len(o.Items)),
		Notes:             make([]dto.WorkOrderNoteResponse, 0, len(o.Notes)),
		CreatedAt:         formatTime(o.CreatedAt),
		UpdatedAt:         formatTime(o.UpdatedAt),
	}
	if o.Vehicle != nil {
		resp.Vehicle = toVehicleBrief(o.Vehicle)
	}
	for i := range o.Items {
		resp.Items = append(resp.Items, *toWorkOrderItemResponse(&o.Items[i]))
	}
	for i := range o.Notes {
		resp.Notes = append(resp.Notes, *toWorkOrderNoteResponse(&o.Notes[i]))
	}
	return resp
}

func toWorkOrderItemResponse(i *model.WorkOrderItem) *dto.WorkOrderItemResponse {
	resp := &dto.WorkOrderItemResponse{
		ID:               i.WorkOrderItemID,
		WorkOrderID:      i.WorkOrderID,
		Name:             i.Name,
		InventoryItemID:  i.InventoryItemID,
		Type:             i.Type,
		Quantity:         i.Quantity,
		UnitPrice:        i.UnitPrice,
		TotalPrice:       i.TotalPrice,
		RequiresApproval: i.RequiresApproval,
		IsApproved:       i.IsApproved,
	}
	if i.ApprovedAt != nil {
		at := formatTime(*i.ApprovedAt)
		resp.ApprovedAt = &at
	}
	return resp
}

func toWorkOrderNoteResponse(n *model.WorkOrderNote) *dto.WorkOrderNoteResponse {
	return &dto.WorkOrderNoteResponse{
		ID:        n.WorkOrderNoteID,
		AuthorID:  n.AuthorID,
		Content:   n.Content,
		ImageURL:  n.ImageURL,
		CreatedAt: formatTime(n.CreatedAt),
	}
}
