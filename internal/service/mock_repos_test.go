package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"garage/backend/internal/model"
	"garage/backend/internal/repository"
	pkgerrors "garage/backend/pkg/errors"
)

// ── 测试聚合 ──

type mockRepos struct {
	user         *mockUserRepo
	vehicle      *mockVehicleRepo
	schedule     *mockScheduleRepo
	appointment  *mockAppointmentRepo
	inventory    *mockInventoryRepo
	workOrder    *mockWorkOrderRepo
	item         *mockWorkOrderItemRepo
	note         *mockWorkOrderNoteRepo
	notification *mockNotificationRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		user:         &mockUserRepo{users: map[string]*model.User{}},
		vehicle:      &mockVehicleRepo{vehicles: map[string]*model.Vehicle{}},
		schedule:     &mockScheduleRepo{schedules: map[string]*model.MechanicSchedule{}},
		appointment:  &mockAppointmentRepo{appts: map[string]*model.Appointment{}},
		inventory:    &mockInventoryRepo{items: map[string]*model.InventoryItem{}},
		note:         &mockWorkOrderNoteRepo{},
		notification: &mockNotificationRepo{},
	}
	m.item = &mockWorkOrderItemRepo{items: map[string]*model.WorkOrderItem{}}
	m.workOrder = &mockWorkOrderRepo{orders: map[string]*model.WorkOrder{}, items: m.item, notes: m.note, vehicles: m.vehicle}
	m.item.orders = m.workOrder

	repo := &repository.Repository{
		User:          m.user,
		Vehicle:       m.vehicle,
		Schedule:      m.schedule,
		Appointment:   m.appointment,
		Inventory:     m.inventory,
		WorkOrder:     m.workOrder,
		WorkOrderItem: m.item,
		WorkOrderNote: m.note,
		Notification:  m.notification,
	}
	return repo, m
}

var mockSeq struct {
	sync.Mutex
	n int
}

func nextID(prefix string) string {
	mockSeq.Lock()
	defer mockSeq.Unlock()
	mockSeq.n++
	return fmt.Sprintf("%s-%d", prefix, mockSeq.n)
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users     map[string]*model.User
	listError error
}

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	if u.UserID == "" {
		u.UserID = nextID("user")
	}
	m.users[u.UserID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var result []model.User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock VehicleRepository ──

type mockVehicleRepo struct {
	vehicles map[string]*model.Vehicle
}

func (m *mockVehicleRepo) Create(_ context.Context, v *model.Vehicle) error {
	if v.VehicleID == "" {
		v.VehicleID = nextID("vehicle")
	}
	m.vehicles[v.VehicleID] = v
	return nil
}

func (m *mockVehicleRepo) GetByID(_ context.Context, id string) (*model.Vehicle, error) {
	if v, ok := m.vehicles[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVehicleRepo) GetByLicensePlate(_ context.Context, plate string) (*model.Vehicle, error) {
	for _, v := range m.vehicles {
		if v.LicensePlate == plate {
			cp := *v
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVehicleRepo) ListByClient(_ context.Context, clientID string) ([]model.Vehicle, error) {
	var result []model.Vehicle
	for _, v := range m.vehicles {
		if v.ClientID == clientID {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (m *mockVehicleRepo) UpdateStatus(_ context.Context, id, status string) error {
	v, ok := m.vehicles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v.Status = status
	return nil
}

// ── Mock MechanicScheduleRepository ──

type mockScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]*model.MechanicSchedule
}

func (m *mockScheduleRepo) Create(_ context.Context, s *model.MechanicSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ScheduleID == "" {
		s.ScheduleID = nextID("schedule")
	}
	if s.Version == 0 {
		s.Version = 1
	}
	cp := *s
	cp.AvailableHours = append(model.StringArray{}, s.AvailableHours...)
	m.schedules[s.ScheduleID] = &cp
	return nil
}

func (m *mockScheduleRepo) get(id string) (*model.MechanicSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	cp.AvailableHours = append(model.StringArray{}, s.AvailableHours...)
	return &cp, nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.MechanicSchedule, error) {
	return m.get(id)
}

func (m *mockScheduleRepo) GetByIDForUpdate(_ context.Context, id string) (*model.MechanicSchedule, error) {
	return m.get(id)
}

func (m *mockScheduleRepo) GetByMechanicAndDate(_ context.Context, mechanicID, date string) (*model.MechanicSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.schedules {
		if s.MechanicID == mechanicID && s.DateString() == date {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) ListByMechanic(_ context.Context, mechanicID string) ([]model.MechanicSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.MechanicSchedule
	for _, s := range m.schedules {
		if s.MechanicID == mechanicID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockScheduleRepo) ListAvailable(_ context.Context, fromDate string) ([]model.MechanicSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.MechanicSchedule
	for _, s := range m.schedules {
		if s.DateString() >= fromDate && len(s.AvailableHours) > 0 {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockScheduleRepo) UpdateHours(_ context.Context, s *model.MechanicSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.schedules[s.ScheduleID]
	if !ok || stored.Version != s.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.AvailableHours = append(model.StringArray{}, s.AvailableHours...)
	stored.Version++
	s.Version = stored.Version
	return nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *mockScheduleRepo) hours(id string) []string {
	s, err := m.get(id)
	if err != nil {
		return nil
	}
	return s.AvailableHours
}

// ── Mock AppointmentRepository ──

type mockAppointmentRepo struct {
	appts map[string]*model.Appointment
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	if a.AppointmentID == "" {
		a.AppointmentID = nextID("appt")
	}
	cp := *a
	m.appts[a.AppointmentID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	if a, ok := m.appts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAppointmentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Appointment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAppointmentRepo) filter(fn func(*model.Appointment) bool) []model.Appointment {
	var result []model.Appointment
	for _, a := range m.appts {
		if fn(a) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Hour < result[j].Hour
	})
	return result
}

func isActive(a *model.Appointment) bool {
	return a.Status == model.AppointmentStatusPending || a.Status == model.AppointmentStatusAccepted
}

func (m *mockAppointmentRepo) ListByClient(_ context.Context, clientID string) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool { return a.ClientID == clientID }), nil
}

func (m *mockAppointmentRepo) ListByMechanic(_ context.Context, mechanicID string) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool { return a.MechanicID == mechanicID }), nil
}

func (m *mockAppointmentRepo) ListActiveByMechanicAndDate(_ context.Context, mechanicID, date string) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool {
		return a.MechanicID == mechanicID && a.Date.Format(model.DateLayout) == date && isActive(a)
	}), nil
}

func (m *mockAppointmentRepo) ListActiveByMechanicFrom(_ context.Context, mechanicID, fromDate string) ([]model.Appointment, error) {
	return m.filter(func(a *model.Appointment) bool {
		return a.MechanicID == mechanicID && a.Date.Format(model.DateLayout) >= fromDate && isActive(a)
	}), nil
}

func (m *mockAppointmentRepo) UpdateStatus(_ context.Context, a *model.Appointment, fromStatus string) error {
	stored, ok := m.appts[a.AppointmentID]
	if !ok || stored.Status != fromStatus {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = a.Status
	stored.RejectionReason = a.RejectionReason
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.appts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.appts, id)
	return nil
}

// ── Mock InventoryRepository ──

type mockInventoryRepo struct {
	mu    sync.Mutex
	items map[string]*model.InventoryItem
}

func (m *mockInventoryRepo) Create(_ context.Context, item *model.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.InventoryItemID == "" {
		item.InventoryItemID = nextID("inv")
	}
	cp := *item
	m.items[item.InventoryItemID] = &cp
	return nil
}

func (m *mockInventoryRepo) GetByID(_ context.Context, id string) (*model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInventoryRepo) GetBySKU(_ context.Context, sku string) (*model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.SKU == sku {
			cp := *item
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInventoryRepo) List(_ context.Context) ([]model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.InventoryItem
	for _, item := range m.items {
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockInventoryRepo) ListLowStock(_ context.Context) ([]model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.InventoryItem
	for _, item := range m.items {
		if item.IsLowStock() {
			result = append(result, *item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Quantity < result[j].Quantity })
	return result, nil
}

func (m *mockInventoryRepo) Update(_ context.Context, item *model.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[item.InventoryItemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	qty := stored.Quantity
	*stored = *item
	stored.Quantity = qty
	return nil
}

func (m *mockInventoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockInventoryRepo) AdjustQuantity(_ context.Context, id string, delta int) (*model.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	item.Quantity += delta
	cp := *item
	return &cp, nil
}

// ── Mock WorkOrder / Item / Note Repository ──

type mockWorkOrderRepo struct {
	orders   map[string]*model.WorkOrder
	items    *mockWorkOrderItemRepo
	notes    *mockWorkOrderNoteRepo
	vehicles *mockVehicleRepo
}

func (m *mockWorkOrderRepo) Create(_ context.Context, o *model.WorkOrder) error {
	if o.WorkOrderID == "" {
		o.WorkOrderID = nextID("wo")
	}
	cp := *o
	m.orders[o.WorkOrderID] = &cp
	return nil
}

func (m *mockWorkOrderRepo) GetByID(_ context.Context, id string) (*model.WorkOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.assemble(o), nil
}

func (m *mockWorkOrderRepo) assemble(o *model.WorkOrder) *model.WorkOrder {
	cp := *o
	cp.Items = nil
	for _, item := range m.items.ordered {
		if item.WorkOrderID == o.WorkOrderID {
			cp.Items = append(cp.Items, *m.items.items[item.WorkOrderItemID])
		}
	}
	cp.Notes = nil
	for i := len(m.notes.notes) - 1; i >= 0; i-- {
		if m.notes.notes[i].WorkOrderID == o.WorkOrderID {
			cp.Notes = append(cp.Notes, m.notes.notes[i])
		}
	}
	if v, ok := m.vehicles.vehicles[o.VehicleID]; ok {
		vc := *v
		cp.Vehicle = &vc
	}
	return &cp
}

func (m *mockWorkOrderRepo) List(_ context.Context, f repository.WorkOrderFilter) ([]model.WorkOrder, int64, error) {
	var result []model.WorkOrder
	for _, o := range m.orders {
		if f.ClientID != "" && o.ClientID != f.ClientID {
			continue
		}
		if f.MechanicID != "" && o.MechanicID != f.MechanicID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		full := m.assemble(o)
		if f.LicensePlate != "" && (full.Vehicle == nil || full.Vehicle.LicensePlate != f.LicensePlate) {
			continue
		}
		result = append(result, *full)
	}
	return result, int64(len(result)), nil
}

func (m *mockWorkOrderRepo) UpdateStatusAndCost(_ context.Context, o *model.WorkOrder) error {
	stored, ok := m.orders[o.WorkOrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Status = o.Status
	stored.FinalCost = o.FinalCost
	return nil
}

type mockWorkOrderItemRepo struct {
	items   map[string]*model.WorkOrderItem
	ordered []*model.WorkOrderItem
	orders  *mockWorkOrderRepo
	// failOnName 写入该名称的明细时返回错误
	failOnName string
}

func (m *mockWorkOrderItemRepo) Create(_ context.Context, item *model.WorkOrderItem) error {
	if m.failOnName != "" && item.Name == m.failOnName {
		return fmt.Errorf("mock: insert %s failed", item.Name)
	}
	if item.WorkOrderItemID == "" {
		item.WorkOrderItemID = nextID("item")
	}
	cp := *item
	m.items[item.WorkOrderItemID] = &cp
	m.ordered = append(m.ordered, &cp)
	return nil
}

func (m *mockWorkOrderItemRepo) GetByID(_ context.Context, id string) (*model.WorkOrderItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *item
	if o, ok := m.orders.orders[item.WorkOrderID]; ok {
		oc := *o
		cp.WorkOrder = &oc
	}
	return &cp, nil
}

func (m *mockWorkOrderItemRepo) Approve(_ context.Context, id string, at time.Time) error {
	item, ok := m.items[id]
	if !ok || !item.RequiresApproval || item.IsApproved {
		return pkgerrors.ErrOptimisticLock
	}
	item.IsApproved = true
	item.ApprovedAt = &at
	return nil
}

type mockWorkOrderNoteRepo struct {
	notes []model.WorkOrderNote
}

func (m *mockWorkOrderNoteRepo) Create(_ context.Context, n *model.WorkOrderNote) error {
	if n.WorkOrderNoteID == "" {
		n.WorkOrderNoteID = nextID("note")
	}
	m.notes = append(m.notes, *n)
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu        sync.Mutex
	list      []*model.Notification
	createErr error
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if n.NotificationID == "" {
		n.NotificationID = nextID("notif")
	}
	cp := *n
	m.list = append(m.list, &cp)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for i := len(m.list) - 1; i >= 0; i-- {
		n := m.list[i]
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			all = append(all, *n)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.list {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkAsRead(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.list {
		if x.NotificationID == id && x.UserID == userID {
			x.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllAsRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.list {
		if x.UserID == userID && !x.IsRead {
			x.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.list {
		if x.NotificationID == id && x.UserID == userID {
			m.list = append(m.list[:i], m.list[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// byUserAndType 统计某用户某类型的通知数
func (m *mockNotificationRepo) byUserAndType(userID, notifyType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.list {
		if x.UserID == userID && x.Type == notifyType {
			n++
		}
	}
	return n
}

func (m *mockNotificationRepo) countType(notifyType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.list {
		if x.Type == notifyType {
			n++
		}
	}
	return n
}
