package domain

import (
	"database/sql"
	"time"
)

// 用户角色
const (
	RoleRegular = 1 // 普通用户
	RoleMember  = 2 // 会员
	RoleAdmin   = 3 // 超级管理员
)

// User 用户领域模型（对应 users 表）
type User struct {
	UserID               int64          `db:"user_id"`
	PhoneNumber          string         `db:"phone_number"` // NOT NULL, unique
	Email                sql.NullString `db:"email"`        // nullable, unique
	PasswordHash         string         `db:"password_hash"`
	UserRole             int            `db:"user_role"` // 1:普通用户 2:会员 3:超级管理员
	AvatarURL            sql.NullString `db:"avatar_url"`
	Nickname             sql.NullString `db:"nickname"`
	RealName             sql.NullString `db:"real_name"`
	PredictionCount      int            `db:"prediction_count"`
	DailyPredictionLimit int            `db:"daily_prediction_limit"`
	MemberExpireTime     sql.NullTime   `db:"member_expire_time"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
	LastLoginAt          sql.NullTime   `db:"last_login_at"`
	IsActive             bool           `db:"is_active"`
}

// IsMember 会员或管理员（享受不限次预测等会员能力）
func (u *User) IsMember() bool {
	return u.UserRole >= RoleMember
}

// IsAdmin 超级管理员
func (u *User) IsAdmin() bool {
	return u.UserRole >= RoleAdmin
}

// Session 用户会话（对应 user_sessions 表）
// Token 本身是 JWT，这里只存 SHA256 哈希，登出时按哈希撤销。
type Session struct {
	SessionID string         `db:"session_id"` // UUID
	UserID    int64          `db:"user_id"`
	TokenHash string         `db:"token_hash"`
	UserAgent sql.NullString `db:"user_agent"`
	IPAddress sql.NullString `db:"ip_address"`
	ExpireAt  time.Time      `db:"expire_at"`
	CreatedAt time.Time      `db:"created_at"`
}
