package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"futures-signal/internal/domain"
)

// PostgresUsersRepository 用户Repository实现
type PostgresUsersRepository struct {
	db *sql.DB
}

// NewPostgresUsersRepository 创建用户Repository
func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

// 确保实现了接口
var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	user_id,
	phone_number,
	email,
	password_hash,
	user_role,
	avatar_url,
	nickname,
	real_name,
	prediction_count,
	daily_prediction_limit,
	member_expire_time,
	created_at,
	updated_at,
	last_login_at,
	is_active
`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.UserID,
		&user.PhoneNumber,
		&user.Email,
		&user.PasswordHash,
		&user.UserRole,
		&user.AvatarURL,
		&user.Nickname,
		&user.RealName,
		&user.PredictionCount,
		&user.DailyPredictionLimit,
		&user.MemberExpireTime,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
		&user.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser 按主键获取用户
func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// GetUserByPhone 按手机号获取用户
func (r *PostgresUsersRepository) GetUserByPhone(ctx context.Context, phoneNumber string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, phoneNumber))
}

// GetUserByEmail 按邮箱获取用户
func (r *PostgresUsersRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ListUsers 分页查询用户列表，按创建时间倒序
func (r *PostgresUsersRepository) ListUsers(ctx context.Context, filters UserFilters, page, size int) ([]*domain.User, int, error) {
	var conditions []string
	var args []any

	if filters.Keyword != "" {
		pattern := "%" + filters.Keyword + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(phone_number ILIKE $%d OR email ILIKE $%d OR nickname ILIKE $%d)",
			len(args)+1, len(args)+2, len(args)+3))
		args = append(args, pattern, pattern, pattern)
	}
	if filters.Role > 0 {
		conditions = append(conditions, fmt.Sprintf("user_role = $%d", len(args)+1))
		args = append(args, filters.Role)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// CreateUser 创建用户，返回新用户ID
func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	query := `
		INSERT INTO users (
			phone_number, email, password_hash, user_role,
			avatar_url, nickname, real_name, daily_prediction_limit, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING user_id
	`
	var userID int64
	err := r.db.QueryRowContext(ctx, query,
		user.PhoneNumber,
		user.Email,
		user.PasswordHash,
		user.UserRole,
		user.AvatarURL,
		user.Nickname,
		user.RealName,
		user.DailyPredictionLimit,
		user.IsActive,
	).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// UpdateUser 更新用户可变字段
func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, userID int64, user *domain.User) error {
	query := `
		UPDATE users SET
			phone_number = $1,
			email = $2,
			user_role = $3,
			avatar_url = $4,
			nickname = $5,
			real_name = $6,
			daily_prediction_limit = $7,
			member_expire_time = $8,
			is_active = $9,
			updated_at = now()
		WHERE user_id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		user.PhoneNumber,
		user.Email,
		user.UserRole,
		user.AvatarURL,
		user.Nickname,
		user.RealName,
		user.DailyPredictionLimit,
		user.MemberExpireTime,
		user.IsActive,
		userID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteUser 删除用户，级联删除其会话、草稿、收藏与浏览记录
func (r *PostgresUsersRepository) DeleteUser(ctx context.Context, userID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateLastLogin 刷新最近登录时间
func (r *PostgresUsersRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = now() WHERE user_id = $1`, userID)
	return err
}

// IncrementPredictionCount 预测次数加一
func (r *PostgresUsersRepository) IncrementPredictionCount(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET prediction_count = prediction_count + 1 WHERE user_id = $1`, userID)
	return err
}

// ResetPredictionCounts 每日预测次数清零，返回受影响行数
func (r *PostgresUsersRepository) ResetPredictionCounts(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET prediction_count = 0 WHERE prediction_count > 0`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
