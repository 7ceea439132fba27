package repository

import (
	"context"

	"futures-signal/internal/domain"
)

// UsersRepository 用户Repository接口
// 使用强类型领域模型，不使用map[string]any
type UsersRepository interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByPhone(ctx context.Context, phoneNumber string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, filters UserFilters, page, size int) ([]*domain.User, int, error)
	CreateUser(ctx context.Context, user *domain.User) (int64, error)
	UpdateUser(ctx context.Context, userID int64, user *domain.User) error
	DeleteUser(ctx context.Context, userID int64) error

	UpdateLastLogin(ctx context.Context, userID int64) error
	IncrementPredictionCount(ctx context.Context, userID int64) error
	ResetPredictionCounts(ctx context.Context) (int64, error)
}

// UserFilters 用户查询过滤器
type UserFilters struct {
	Keyword string // 模糊搜索：phone_number, email, nickname
	Role    int    // 0 表示不过滤
}
