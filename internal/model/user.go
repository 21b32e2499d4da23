package model

// User 用户表 — 对应 users（由身份服务维护，本服务只读取角色）
type User struct {
	UserID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name   string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email  string `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	Role   string `gorm:"type:varchar(20);not null"                      json:"role"` // client | mechanic | admin
	Timestamps
}

// TableName 指定表名
func (User) TableName() string { return "users" }
