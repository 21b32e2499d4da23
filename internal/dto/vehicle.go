package dto

// ── 车辆模块 DTO ──

// CreateVehicleRequest 登记车辆请求
type CreateVehicleRequest struct {
	LicensePlate string  `json:"license_plate" binding:"required,min=2,max=20"`
	Brand        string  `json:"brand"         binding:"required,max=50"`
	Model        string  `json:"model"         binding:"required,max=50"`
	Year         int     `json:"year"          binding:"required,min=1900,max=2100"`
	Color        *string `json:"color"         binding:"omitempty,max=30"`
}

// VehicleResponse 车辆信息响应
type VehicleResponse struct {
	ID           string  `json:"id"`
	LicensePlate string  `json:"license_plate"`
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Year         int     `json:"year"`
	Color        *string `json:"color,omitempty"`
	ClientID     string  `json:"client_id"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
}
