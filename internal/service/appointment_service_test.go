package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/exp/slices"

	"garage/backend/internal/dto"
	"garage/backend/internal/events"
	"garage/backend/internal/model"
)

// ── 测试辅助 ──

type apptFixture struct {
	svc AppointmentService
	m   *mockRepos
	pub *fakePublisher
}

func setupTestAppointmentService() *apptFixture {
	repo, m := newMockRepos()
	seedUsers(m)
	seedVehicle(m, "v-1", "ABC123", "client-1")
	seedVehicle(m, "v-2", "XYZ789", "client-2")
	seedSchedule(m, "s-1", "mech-1", testTomorrow, "09:00", "10:30")

	notifier, _, _ := newTestNotifier(repo)
	pub := &fakePublisher{}
	return &apptFixture{
		svc: NewAppointmentService(repo, notifier, pub, nopLogger()),
		m:   m,
		pub: pub,
	}
}

func bookingRequest(hour string) *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		MechanicID: "mech-1",
		VehicleID:  "v-1",
		ScheduleID: "s-1",
		Date:       testTomorrow,
		Hour:       hour,
	}
}

// ── 端到端场景：预约 → 拒绝 → 时间回补 ──

func TestAppointmentService_BookThenReject_RestoresHour(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if appt.Status != model.AppointmentStatusPending {
		t.Errorf("期望 pending，实际 %s", appt.Status)
	}
	if got := f.m.schedule.hours("s-1"); !slices.Equal(got, []string{"10:30"}) {
		t.Fatalf("预约后期望 [10:30]，实际 %v", got)
	}
	if n := f.m.notification.byUserAndType("mech-1", model.NotificationAppointmentCreated); n != 1 {
		t.Errorf("期望技师收到 1 条新预约通知，实际 %d", n)
	}

	rejected, err := f.svc.Reject(ctx, appt.ID, "mech-1", "no parts")
	if err != nil {
		t.Fatalf("Reject 应成功: %v", err)
	}
	if rejected.Status != model.AppointmentStatusRejected {
		t.Errorf("期望 rejected，实际 %s", rejected.Status)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "no parts" {
		t.Errorf("拒绝原因未保存: %v", rejected.RejectionReason)
	}
	if got := f.m.schedule.hours("s-1"); !slices.Equal(got, []string{"09:00", "10:30"}) {
		t.Errorf("拒绝后期望 [09:00 10:30]，实际 %v", got)
	}
	if n := f.m.notification.byUserAndType("client-1", model.NotificationAppointmentRejected); n != 1 {
		t.Errorf("期望客户收到 1 条拒绝通知，实际 %d", n)
	}
	if n := f.pub.countType(events.EventAppointmentStatusChanged); n != 2 {
		t.Errorf("期望 2 条状态事件，实际 %d", n)
	}
}

// ── Create 测试 ──

func TestAppointmentService_Create_HourWithSeconds(t *testing.T) {
	f := setupTestAppointmentService()

	appt, err := f.svc.Create(context.Background(), "client-1", bookingRequest("10:30:00"))
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if appt.Hour != "10:30" {
		t.Errorf("期望归一化为 10:30，实际 %s", appt.Hour)
	}
	if got := f.m.schedule.hours("s-1"); !slices.Equal(got, []string{"09:00"}) {
		t.Errorf("期望 [09:00]，实际 %v", got)
	}
}

func TestAppointmentService_Create_SameHourTwice(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, "client-1", bookingRequest("09:00")); err != nil {
		t.Fatalf("首次预约应成功: %v", err)
	}
	_, err := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))
	if !errors.Is(err, ErrHourUnavailable) {
		t.Errorf("期望 ErrHourUnavailable，实际: %v", err)
	}
	if len(f.m.appointment.appts) != 1 {
		t.Errorf("期望只有 1 条预约，实际 %d", len(f.m.appointment.appts))
	}
}

func TestAppointmentService_Create_Validation(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()

	tests := []struct {
		name     string
		clientID string
		mutate   func(r *dto.CreateAppointmentRequest)
		wantErr  error
	}{
		{"目标不是技师", "client-1", func(r *dto.CreateAppointmentRequest) { r.MechanicID = "client-2" }, ErrNotMechanic},
		{"技师不存在", "client-1", func(r *dto.CreateAppointmentRequest) { r.MechanicID = "ghost" }, ErrMechanicNotFound},
		{"车辆不属于客户", "client-1", func(r *dto.CreateAppointmentRequest) { r.VehicleID = "v-2" }, ErrVehicleNotOwned},
		{"车辆不存在", "client-1", func(r *dto.CreateAppointmentRequest) { r.VehicleID = "v-x" }, ErrVehicleNotFound},
		{"排班不存在", "client-1", func(r *dto.CreateAppointmentRequest) { r.ScheduleID = "s-x" }, ErrScheduleNotFound},
		{"日期与排班不一致", "client-1", func(r *dto.CreateAppointmentRequest) { r.Date = testToday }, ErrScheduleMismatch},
		{"技师与排班不一致", "client-1", func(r *dto.CreateAppointmentRequest) { r.MechanicID = "mech-2" }, ErrScheduleMismatch},
		{"时间不在排班内", "client-1", func(r *dto.CreateAppointmentRequest) { r.Hour = "12:00" }, ErrHourUnavailable},
		{"时间格式错误", "client-1", func(r *dto.CreateAppointmentRequest) { r.Hour = "9am" }, ErrInvalidHourFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := bookingRequest("09:00")
			tt.mutate(req)
			_, err := f.svc.Create(ctx, tt.clientID, req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
	if got := f.m.schedule.hours("s-1"); !slices.Equal(got, []string{"09:00", "10:30"}) {
		t.Errorf("失败的预约不应修改排班，实际 %v", got)
	}
	if len(f.m.appointment.appts) != 0 {
		t.Errorf("失败的预约不应写入，实际 %d 条", len(f.m.appointment.appts))
	}
}

// ── 状态机测试 ──

func TestAppointmentService_Accept_KeepsHourConsumed(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()
	appt, _ := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))

	accepted, err := f.svc.Accept(ctx, appt.ID, "mech-1")
	if err != nil {
		t.Fatalf("Accept 应成功: %v", err)
	}
	if accepted.Status != model.AppointmentStatusAccepted {
		t.Errorf("期望 accepted，实际 %s", accepted.Status)
	}
	if got := f.m.schedule.hours("s-1"); !slices.Equal(got, []string{"10:30"}) {
		t.Errorf("确认后时间仍应被占用，实际 %v", got)
	}
	if n := f.m.notification.byUserAndType("client-1", model.NotificationAppointmentAccepted); n != 1 {
		t.Errorf("期望客户收到确认通知，实际 %d", n)
	}
}

func TestAppointmentService_IllegalTransitions(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()

	accepted, _ := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))
	if _, err := f.svc.Accept(ctx, accepted.ID, "mech-1"); err != nil {
		t.Fatalf("Accept 应成功: %v", err)
	}
	rejected, _ := f.svc.Create(ctx, "client-1", bookingRequest("10:30"))
	if _, err := f.svc.Reject(ctx, rejected.ID, "mech-1", "busy"); err != nil {
		t.Fatalf("Reject 应成功: %v", err)
	}
	hoursBefore := f.m.schedule.hours("s-1")

	// accepted → rejected
	if _, err := f.svc.Reject(ctx, accepted.ID, "mech-1", "late"); !errors.Is(err, ErrAppointmentNotPending) {
		t.Errorf("accepted→rejected 期望 ErrAppointmentNotPending，实际: %v", err)
	}
	// rejected → accepted
	if _, err := f.svc.Accept(ctx, rejected.ID, "mech-1"); !errors.Is(err, ErrAppointmentNotPending) {
		t.Errorf("rejected→accepted 期望 ErrAppointmentNotPending，实际: %v", err)
	}
	// accepted → accepted
	if _, err := f.svc.Accept(ctx, accepted.ID, "mech-1"); !errors.Is(err, ErrAppointmentNotPending) {
		t.Errorf("accepted→accepted 期望 ErrAppointmentNotPending，实际: %v", err)
	}

	if f.m.appointment.appts[accepted.ID].Status != model.AppointmentStatusAccepted {
		t.Error("非法迁移不应修改状态")
	}
	if f.m.appointment.appts[rejected.ID].Status != model.AppointmentStatusRejected {
		t.Error("非法迁移不应修改状态")
	}
	if !slices.Equal(f.m.schedule.hours("s-1"), hoursBefore) {
		t.Error("非法迁移不应修改排班")
	}
}

func TestAppointmentService_Reject_Guards(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()
	appt, _ := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))

	if _, err := f.svc.Reject(ctx, appt.ID, "mech-1", ""); !errors.Is(err, ErrRejectionReasonRequired) {
		t.Errorf("期望 ErrRejectionReasonRequired，实际: %v", err)
	}
	if _, err := f.svc.Reject(ctx, appt.ID, "mech-2", "busy"); !errors.Is(err, ErrAppointmentNotAssigned) {
		t.Errorf("期望 ErrAppointmentNotAssigned，实际: %v", err)
	}
	if _, err := f.svc.Accept(ctx, "missing", "mech-1"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("期望 ErrAppointmentNotFound，实际: %v", err)
	}
	if f.m.appointment.appts[appt.ID].Status != model.AppointmentStatusPending {
		t.Error("被拦截的操作不应修改状态")
	}
}

func TestAppointmentService_Reject_ScheduleDeleted(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()
	appt, _ := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))
	delete(f.m.schedule.schedules, "s-1")

	resp, err := f.svc.Reject(ctx, appt.ID, "mech-1", "closed")
	if err != nil {
		t.Fatalf("排班已删除时拒绝仍应成功: %v", err)
	}
	if resp.Status != model.AppointmentStatusRejected {
		t.Errorf("期望 rejected，实际 %s", resp.Status)
	}
}

func TestAppointmentService_UpdateStatus(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()
	appt, _ := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))

	if _, err := f.svc.UpdateStatus(ctx, appt.ID, "mech-1", &dto.UpdateAppointmentStatusRequest{Status: "done"}); !errors.Is(err, ErrInvalidAppointmentStatus) {
		t.Errorf("期望 ErrInvalidAppointmentStatus，实际: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, appt.ID, "mech-1", &dto.UpdateAppointmentStatusRequest{Status: "rejected"}); !errors.Is(err, ErrRejectionReasonRequired) {
		t.Errorf("期望 ErrRejectionReasonRequired，实际: %v", err)
	}

	reason := "no slot"
	resp, err := f.svc.UpdateStatus(ctx, appt.ID, "mech-1", &dto.UpdateAppointmentStatusRequest{Status: "rejected", Reason: &reason})
	if err != nil {
		t.Fatalf("UpdateStatus 应成功: %v", err)
	}
	if resp.Status != model.AppointmentStatusRejected {
		t.Errorf("期望 rejected，实际 %s", resp.Status)
	}
	if got := f.m.schedule.hours("s-1"); !slices.Equal(got, []string{"09:00", "10:30"}) {
		t.Errorf("期望时间回补，实际 %v", got)
	}
}

// ── Cancel 测试 ──

func TestAppointmentService_Cancel(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()
	appt, _ := f.svc.Create(ctx, "client-1", bookingRequest("10:30"))
	if _, err := f.svc.Accept(ctx, appt.ID, "mech-1"); err != nil {
		t.Fatalf("Accept 应成功: %v", err)
	}

	if err := f.svc.Cancel(ctx, appt.ID, "client-2"); !errors.Is(err, ErrAppointmentNotOwner) {
		t.Errorf("期望 ErrAppointmentNotOwner，实际: %v", err)
	}
	if err := f.svc.Cancel(ctx, appt.ID, "client-1"); err != nil {
		t.Fatalf("Cancel 应成功: %v", err)
	}
	if _, ok := f.m.appointment.appts[appt.ID]; ok {
		t.Error("取消后预约应被删除")
	}
	if got := f.m.schedule.hours("s-1"); !slices.Equal(got, []string{"09:00", "10:30"}) {
		t.Errorf("取消后期望时间回补，实际 %v", got)
	}
	if n := f.m.notification.byUserAndType("mech-1", model.NotificationAppointmentCancelled); n != 1 {
		t.Errorf("期望技师收到取消通知，实际 %d", n)
	}
	if err := f.svc.Cancel(ctx, appt.ID, "client-1"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("重复取消期望 ErrAppointmentNotFound，实际: %v", err)
	}
}

func TestAppointmentService_Cancel_Rejected(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()
	appt, _ := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))
	_, _ = f.svc.Reject(ctx, appt.ID, "mech-1", "busy")

	if err := f.svc.Cancel(ctx, appt.ID, "client-1"); !errors.Is(err, ErrAppointmentNotCancellable) {
		t.Errorf("期望 ErrAppointmentNotCancellable，实际: %v", err)
	}
	if got := f.m.schedule.hours("s-1"); !slices.Equal(got, []string{"09:00", "10:30"}) {
		t.Errorf("时间只应回补一次，实际 %v", got)
	}
}

// ── 查询测试 ──

func TestAppointmentService_GetByID_Access(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()
	appt, _ := f.svc.Create(ctx, "client-1", bookingRequest("09:00"))

	for _, tc := range []struct{ id, role string }{
		{"client-1", model.RoleClient},
		{"mech-1", model.RoleMechanic},
		{"admin-1", model.RoleAdmin},
	} {
		if _, err := f.svc.GetByID(ctx, appt.ID, tc.id, tc.role); err != nil {
			t.Errorf("%s 应可查看: %v", tc.id, err)
		}
	}
	if _, err := f.svc.GetByID(ctx, appt.ID, "client-2", model.RoleClient); !errors.Is(err, ErrAppointmentForbidden) {
		t.Errorf("期望 ErrAppointmentForbidden，实际: %v", err)
	}
}

func TestAppointmentService_ListByClientAndMechanic(t *testing.T) {
	f := setupTestAppointmentService()
	ctx := context.Background()
	_, _ = f.svc.Create(ctx, "client-1", bookingRequest("10:30"))
	_, _ = f.svc.Create(ctx, "client-1", bookingRequest("09:00"))

	list, err := f.svc.ListByClient(ctx, "client-1")
	if err != nil {
		t.Fatalf("ListByClient 应成功: %v", err)
	}
	if len(list) != 2 || list[0].Hour != "09:00" {
		t.Errorf("期望 2 条且按时间升序，实际 %+v", list)
	}
	mine, _ := f.svc.ListByMechanic(ctx, "mech-2")
	if len(mine) != 0 {
		t.Errorf("mech-2 不应有预约，实际 %d", len(mine))
	}
}
