package repository

import (
	"context"

	"futures-signal/internal/domain"
)

// SessionsRepository 用户会话Repository接口
// 登录创建一条记录，登出按 token 哈希撤销。
type SessionsRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) (string, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteSessionsByUser(ctx context.Context, userID int64) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
