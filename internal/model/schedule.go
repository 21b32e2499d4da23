package model

import "time"

// MechanicSchedule 技师排班表 — 对应 mechanic_schedules
// 同一技师同一日期只有一行；AvailableHours 为升序、去重的 "HH:MM" 集合
type MechanicSchedule struct {
	ScheduleID     string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"        json:"schedule_id"`
	MechanicID     string      `gorm:"type:uuid;not null;uniqueIndex:uq_mechanic_schedules_mechanic_date" json:"mechanic_id"`
	Date           time.Time   `gorm:"type:date;not null;uniqueIndex:uq_mechanic_schedules_mechanic_date" json:"date"`
	AvailableHours StringArray `gorm:"type:varchar(5)[];not null;default:'{}'"               json:"available_hours"`
	Version        int         `gorm:"not null;default:1"                                    json:"version"`
	Timestamps

	// 关联
	Mechanic *User `gorm:"foreignKey:MechanicID;references:UserID" json:"mechanic,omitempty"`
}

// TableName 指定表名
func (MechanicSchedule) TableName() string { return "mechanic_schedules" }

// DateString 返回 YYYY-MM-DD 形式的日期
func (s *MechanicSchedule) DateString() string {
	return s.Date.Format(DateLayout)
}

// DateLayout 日历日期格式
const DateLayout = "2006-01-02"
