package dto

// ── 预约模块 DTO ──

// CreateAppointmentRequest 创建预约请求
type CreateAppointmentRequest struct {
	MechanicID  string  `json:"mechanic_id" binding:"required,uuid"`
	VehicleID   string  `json:"vehicle_id"  binding:"required,uuid"`
	ScheduleID  string  `json:"schedule_id" binding:"required,uuid"`
	Date        string  `json:"date"        binding:"required,datetime=2006-01-02"`
	Hour        string  `json:"hour"        binding:"required,hhmm"` // "09:00" 或 "09:00:00"
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

// RejectAppointmentRequest 拒绝预约请求
type RejectAppointmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// UpdateAppointmentStatusRequest 通用状态更新请求
type UpdateAppointmentStatusRequest struct {
	Status string  `json:"status" binding:"required,oneof=accepted rejected"`
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

// VehicleBrief 车辆简要信息
type VehicleBrief struct {
	ID           string `json:"id"`
	LicensePlate string `json:"license_plate"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
}

// AppointmentResponse 预约信息响应
type AppointmentResponse struct {
	ID              string        `json:"id"`
	ClientID        string        `json:"client_id"`
	Client          *UserBrief    `json:"client,omitempty"`
	MechanicID      string        `json:"mechanic_id"`
	Mechanic        *UserBrief    `json:"mechanic,omitempty"`
	VehicleID       string        `json:"vehicle_id"`
	Vehicle         *VehicleBrief `json:"vehicle,omitempty"`
	ScheduleID      *string       `json:"schedule_id,omitempty"`
	Date            string        `json:"date"`
	Hour            string        `json:"hour"`
	Status          string        `json:"status"`
	Description     *string       `json:"description,omitempty"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
}
