package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"garage/backend/internal/events"
	"garage/backend/internal/model"
	"garage/backend/internal/repository"
)

// ── 测试夹具 ──

// 测试时钟固定在 2026-03-10 10:30（UTC）
var testNow = time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)

const (
	testToday    = "2026-03-10"
	testTomorrow = "2026-03-11"
	testPast     = "2026-03-09"
)

func fixedClock() Clock {
	return Clock{Now: func() time.Time { return testNow }, Location: time.UTC}
}

func mustDate(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedUsers 写入 client-1 / client-2 / mech-1 / mech-2 / admin-1 / admin-2
func seedUsers(m *mockRepos) {
	for id, role := range map[string]string{
		"client-1": model.RoleClient,
		"client-2": model.RoleClient,
		"mech-1":   model.RoleMechanic,
		"mech-2":   model.RoleMechanic,
		"admin-1":  model.RoleAdmin,
		"admin-2":  model.RoleAdmin,
	} {
		m.user.users[id] = &model.User{UserID: id, Name: id, Email: id + "@garage.test", Role: role}
	}
}

func seedVehicle(m *mockRepos, id, plate, clientID string) {
	m.vehicle.vehicles[id] = &model.Vehicle{
		VehicleID:    id,
		LicensePlate: plate,
		Brand:        "Toyota",
		Model:        "Corolla",
		Year:         2020,
		ClientID:     clientID,
		Status:       model.VehicleStatusAvailable,
	}
}

func seedSchedule(m *mockRepos, id, mechanicID, date string, hours ...string) {
	m.schedule.schedules[id] = &model.MechanicSchedule{
		ScheduleID:     id,
		MechanicID:     mechanicID,
		Date:           mustDate(date),
		AvailableHours: model.StringArray(hours),
		Version:        1,
	}
}

func seedInventory(m *mockRepos, id, sku string, qty, minStock int) {
	m.inventory.items[id] = &model.InventoryItem{
		InventoryItemID: id,
		SKU:             sku,
		Name:            "item " + sku,
		Quantity:        qty,
		MinStock:        minStock,
		Price:           decimal.RequireFromString("10.00"),
	}
}

// ── Fake 推送与事件 ──

type fakePusher struct {
	mu     sync.Mutex
	pushed map[string]int
	err    error
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushed: make(map[string]int)}
}

func (p *fakePusher) Push(_ context.Context, userID string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.pushed[userID]++
	return nil
}

func (p *fakePusher) count(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushed[userID]
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Envelope
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, env)
	return nil
}

func (p *fakePublisher) countType(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

var errMock = errors.New("mock failure")

// newTestNotifier 通知服务使用 mock 仓储与可观测的推送
func newTestNotifier(repo *repository.Repository) (NotificationService, *fakePusher, *fakePublisher) {
	pusher := newFakePusher()
	pub := &fakePublisher{}
	return NewNotificationService(repo, pusher, pub, nopLogger()), pusher, pub
}

func nopLogger() *zap.Logger { return zap.NewNop() }
