package repository

import (
	"context"
	"database/sql"
	"fmt"

	"futures-signal/internal/domain"
)

// PostgresBrowseHistoryRepository 浏览历史Repository实现
type PostgresBrowseHistoryRepository struct {
	db *sql.DB
}

// NewPostgresBrowseHistoryRepository 创建浏览历史Repository
func NewPostgresBrowseHistoryRepository(db *sql.DB) *PostgresBrowseHistoryRepository {
	return &PostgresBrowseHistoryRepository{db: db}
}

var _ BrowseHistoryRepository = (*PostgresBrowseHistoryRepository)(nil)

// RecordBrowse 记录浏览，重复浏览刷新浏览时间
func (r *PostgresBrowseHistoryRepository) RecordBrowse(ctx context.Context, userID, postID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO browse_history (user_id, post_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, post_id) DO UPDATE SET browse_time = now()`,
		userID, postID)
	return err
}

// ListBrowsedPosts 分页查询浏览过的帖子，按浏览时间倒序
func (r *PostgresBrowseHistoryRepository) ListBrowsedPosts(ctx context.Context, userID int64, page, size int) ([]*domain.Post, int, error) {
	joinClause := postFrom + `
		JOIN browse_history h ON h.post_id = p.post_id
		WHERE h.user_id = $1 AND p.status = 1`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)`+joinClause, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count browse history: %w", err)
	}

	query := `SELECT ` + postColumns + joinClause +
		` ORDER BY h.browse_time DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("list browse history: %w", err)
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

// ClearHistory 清空用户浏览历史
func (r *PostgresBrowseHistoryRepository) ClearHistory(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM browse_history WHERE user_id = $1`, userID)
	return err
}
