package dto

// ── 技师排班模块 DTO ──

// CreateScheduleRequest 创建排班请求
type CreateScheduleRequest struct {
	Date           string   `json:"date"            binding:"required,datetime=2006-01-02"`
	AvailableHours []string `json:"available_hours" binding:"required,min=1,dive,hhmm"`
}

// UpdateScheduleRequest 更新排班请求（整体替换时间集合）
type UpdateScheduleRequest struct {
	AvailableHours []string `json:"available_hours" binding:"required,min=1,dive,hhmm"`
}

// ScheduleResponse 排班信息响应
type ScheduleResponse struct {
	ID             string     `json:"id"`
	MechanicID     string     `json:"mechanic_id"`
	Mechanic       *UserBrief `json:"mechanic,omitempty"`
	Date           string     `json:"date"`
	AvailableHours []string   `json:"available_hours"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at"`
}
