package repository

import (
	"context"
	"database/sql"

	"futures-signal/internal/domain"
)

// PostgresSessionsRepository 用户会话Repository实现
type PostgresSessionsRepository struct {
	db *sql.DB
}

// NewPostgresSessionsRepository 创建会话Repository
func NewPostgresSessionsRepository(db *sql.DB) *PostgresSessionsRepository {
	return &PostgresSessionsRepository{db: db}
}

var _ SessionsRepository = (*PostgresSessionsRepository)(nil)

// CreateSession 创建会话记录，返回会话ID
func (r *PostgresSessionsRepository) CreateSession(ctx context.Context, session *domain.Session) (string, error) {
	query := `
		INSERT INTO user_sessions (user_id, token_hash, user_agent, ip_address, expire_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING session_id::text
	`
	var sessionID string
	err := r.db.QueryRowContext(ctx, query,
		session.UserID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.ExpireAt,
	).Scan(&sessionID)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// GetSessionByTokenHash 按 token 哈希查询未过期会话
func (r *PostgresSessionsRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `
		SELECT session_id::text, user_id, token_hash, user_agent, ip_address, expire_at, created_at
		FROM user_sessions
		WHERE token_hash = $1 AND expire_at > now()
	`
	var session domain.Session
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&session.SessionID,
		&session.UserID,
		&session.TokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpireAt,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSessionByTokenHash 撤销指定 token 的会话
func (r *PostgresSessionsRepository) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteSessionsByUser 撤销用户的全部会话
func (r *PostgresSessionsRepository) DeleteSessionsByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpiredSessions 清理已过期会话，返回删除行数
func (r *PostgresSessionsRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE expire_at <= now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
