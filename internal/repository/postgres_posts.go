package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"futures-signal/internal/domain"
)

// PostgresPostsRepository 信号帖子Repository实现
type PostgresPostsRepository struct {
	db *sql.DB
}

// NewPostgresPostsRepository 创建帖子Repository
func NewPostgresPostsRepository(db *sql.DB) *PostgresPostsRepository {
	return &PostgresPostsRepository{db: db}
}

var _ PostsRepository = (*PostgresPostsRepository)(nil)

const postColumns = `
	p.post_id,
	p.author_id,
	p.title,
	p.contract_code,
	p.strike_price,
	p.stop_loss,
	p.take_profit,
	p.current_price,
	p.direction,
	p.suggestion,
	p.content,
	p.k_line_image,
	p.sector_id,
	p.collect_count,
	p.status,
	p.publish_time,
	p.updated_at,
	u.nickname,
	u.avatar_url
`

const postFrom = ` FROM posts p JOIN users u ON u.user_id = p.author_id`

func scanPost(row interface{ Scan(...any) error }) (*domain.Post, error) {
	var post domain.Post
	err := row.Scan(
		&post.PostID,
		&post.AuthorID,
		&post.Title,
		&post.ContractCode,
		&post.StrikePrice,
		&post.StopLoss,
		&post.TakeProfit,
		&post.CurrentPrice,
		&post.Direction,
		&post.Suggestion,
		&post.Content,
		&post.KLineImage,
		&post.SectorID,
		&post.CollectCount,
		&post.Status,
		&post.PublishTime,
		&post.UpdatedAt,
		&post.AuthorNickname,
		&post.AuthorAvatar,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPost 获取单篇已发布帖子
func (r *PostgresPostsRepository) GetPost(ctx context.Context, postID int64) (*domain.Post, error) {
	query := `SELECT ` + postColumns + postFrom + ` WHERE p.post_id = $1 AND p.status = 1`
	return scanPost(r.db.QueryRowContext(ctx, query, postID))
}

// ListPosts 分页查询已发布帖子，按发布时间倒序
func (r *PostgresPostsRepository) ListPosts(ctx context.Context, filters PostFilters, page, size int) ([]*domain.Post, int, error) {
	conditions := []string{"p.status = 1"}
	var args []any

	if filters.AuthorID > 0 {
		conditions = append(conditions, fmt.Sprintf("p.author_id = $%d", len(args)+1))
		args = append(args, filters.AuthorID)
	}
	if filters.ContractCode != "" {
		conditions = append(conditions, fmt.Sprintf("p.contract_code = $%d", len(args)+1))
		args = append(args, filters.ContractCode)
	}
	if filters.SectorID > 0 {
		conditions = append(conditions, fmt.Sprintf("p.sector_id = $%d", len(args)+1))
		args = append(args, filters.SectorID)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(p.contract_code ILIKE $%d OR p.title ILIKE $%d)", len(args)+1, len(args)+2))
		args = append(args, pattern, pattern)
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*)` + postFrom + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	query := `SELECT ` + postColumns + postFrom + whereClause +
		fmt.Sprintf(" ORDER BY p.publish_time DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, post)
	}
	return posts, total, rows.Err()
}

// CreatePost 创建帖子，返回新帖子ID
func (r *PostgresPostsRepository) CreatePost(ctx context.Context, post *domain.Post) (int64, error) {
	query := `
		INSERT INTO posts (
			author_id, title, contract_code, strike_price, stop_loss, take_profit,
			current_price, direction, suggestion, content, k_line_image, sector_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING post_id
	`
	var postID int64
	err := r.db.QueryRowContext(ctx, query,
		post.AuthorID,
		post.Title,
		post.ContractCode,
		post.StrikePrice,
		post.StopLoss,
		post.TakeProfit,
		post.CurrentPrice,
		post.Direction,
		post.Suggestion,
		post.Content,
		post.KLineImage,
		post.SectorID,
	).Scan(&postID)
	if err != nil {
		return 0, err
	}
	return postID, nil
}

// UpdatePost 更新帖子内容字段
func (r *PostgresPostsRepository) UpdatePost(ctx context.Context, postID int64, post *domain.Post) error {
	query := `
		UPDATE posts SET
			title = $1,
			contract_code = $2,
			strike_price = $3,
			stop_loss = $4,
			take_profit = $5,
			direction = $6,
			suggestion = $7,
			content = $8,
			k_line_image = $9,
			sector_id = $10,
			updated_at = now()
		WHERE post_id = $11 AND status = 1
	`
	result, err := r.db.ExecContext(ctx, query,
		post.Title,
		post.ContractCode,
		post.StrikePrice,
		post.StopLoss,
		post.TakeProfit,
		post.Direction,
		post.Suggestion,
		post.Content,
		post.KLineImage,
		post.SectorID,
		postID,
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

// SoftDeletePost 软删除帖子
func (r *PostgresPostsRepository) SoftDeletePost(ctx context.Context, postID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status = 0, updated_at = now() WHERE post_id = $1 AND status = 1`, postID)
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

// AdjustCollectCount 调整收藏计数，不允许减到负数
func (r *PostgresPostsRepository) AdjustCollectCount(ctx context.Context, postID int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET collect_count = GREATEST(collect_count + $1, 0) WHERE post_id = $2`,
		delta, postID)
	return err
}

// UpdateCurrentPrice 按合约代码批量刷新帖子现价，返回受影响行数
func (r *PostgresPostsRepository) UpdateCurrentPrice(ctx context.Context, contractCode string, price float64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET current_price = $1 WHERE contract_code = $2 AND status = 1`,
		price, contractCode)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SoftDeleteByContractCodes 批量软删除指定合约的帖子（合约到期下架）
func (r *PostgresPostsRepository) SoftDeleteByContractCodes(ctx context.Context, contractCodes []string) (int64, error) {
	if len(contractCodes) == 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET status = 0, updated_at = now()
		 WHERE contract_code = ANY($1) AND status = 1`,
		pq.Array(contractCodes))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListActiveContractCodes 列出已发布帖子引用的全部合约代码（去重）
func (r *PostgresPostsRepository) ListActiveContractCodes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT contract_code FROM posts WHERE status = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
