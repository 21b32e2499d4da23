package model

// 车辆状态：仅由工单流转修改
const (
	VehicleStatusAvailable      = "available"
	VehicleStatusInService      = "in_service"
	VehicleStatusReadyForPickup = "ready_for_pickup"
)

// Vehicle 车辆表 — 对应 vehicles
type Vehicle struct {
	VehicleID    string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"vehicle_id"`
	LicensePlate string  `gorm:"type:varchar(20);not null;uniqueIndex"          json:"license_plate"`
	Brand        string  `gorm:"type:varchar(50);not null"                      json:"brand"`
	Model        string  `gorm:"type:varchar(50);not null"                      json:"model"`
	Year         int     `gorm:"not null"                                       json:"year"`
	Color        *string `gorm:"type:varchar(30)"                               json:"color,omitempty"`
	ClientID     string  `gorm:"type:uuid;not null;index"                       json:"client_id"`
	Status       string  `gorm:"type:varchar(20);not null;default:'available'"  json:"status"`
	Timestamps

	// 关联
	Client *User `gorm:"foreignKey:ClientID;references:UserID" json:"client,omitempty"`
}

// TableName 指定表名
func (Vehicle) TableName() string { return "vehicles" }
