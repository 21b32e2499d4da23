package model

import "time"

// 预约状态：pending 是唯一可变状态
const (
	AppointmentStatusPending  = "pending"
	AppointmentStatusAccepted = "accepted"
	AppointmentStatusRejected = "rejected"
)

// Appointment 预约表 — 对应 appointments
type Appointment struct {
	AppointmentID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"appointment_id"`
	ClientID        string    `gorm:"type:uuid;not null;index"                       json:"client_id"`
	MechanicID      string    `gorm:"type:uuid;not null"                             json:"mechanic_id"`
	VehicleID       string    `gorm:"type:uuid;not null"                             json:"vehicle_id"`
	ScheduleID      *string   `gorm:"type:uuid"                                      json:"schedule_id,omitempty"` // 排班被删除后置空
	Date            time.Time `gorm:"type:date;not null"                             json:"date"`
	Hour            string    `gorm:"type:varchar(5);not null"                       json:"hour"`
	Status          string    `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Description     *string   `gorm:"type:text"                                      json:"description,omitempty"`
	RejectionReason *string   `gorm:"type:text"                                      json:"rejection_reason,omitempty"`
	Timestamps

	// 关联
	Client   *User    `gorm:"foreignKey:ClientID;references:UserID"       json:"client,omitempty"`
	Mechanic *User    `gorm:"foreignKey:MechanicID;references:UserID"     json:"mechanic,omitempty"`
	Vehicle  *Vehicle `gorm:"foreignKey:VehicleID;references:VehicleID"   json:"vehicle,omitempty"`
}

// TableName 指定表名
func (Appointment) TableName() string { return "appointments" }
