package repository

import (
	"context"
	"database/sql"
	"fmt"

	"futures-signal/internal/domain"
)

// PostgresCollectionsRepository 收藏Repository实现
type PostgresCollectionsRepository struct {
	db *sql.DB
}

// NewPostgresCollectionsRepository 创建收藏Repository
func NewPostgresCollectionsRepository(db *sql.DB) *PostgresCollectionsRepository {
	return &PostgresCollectionsRepository{db: db}
}

var _ CollectionsRepository = (*PostgresCollectionsRepository)(nil)

// IsCollected 是否已收藏
func (r *PostgresCollectionsRepository) IsCollected(ctx context.Context, userID, postID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM collections WHERE user_id = $1 AND post_id = $2)`,
		userID, postID).Scan(&exists)
	return exists, err
}

// AddCollection 添加收藏，重复收藏静默忽略
func (r *PostgresCollectionsRepository) AddCollection(ctx context.Context, userID, postID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collections (user_id, post_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID)
	return err
}

// RemoveCollection 取消收藏
func (r *PostgresCollectionsRepository) RemoveCollection(ctx context.Context, userID, postID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM collections WHERE user_id = $1 AND post_id = $2`,
		userID, postID)
	return err
}

// ListCollectedPosts 分页查询收藏的帖子，按收藏时间倒序
func (r *PostgresCollectionsRepository) ListCollectedPosts(ctx context.Context, userID int64, page, size int) ([]*domain.Post, int, error) {
	joinClause := postFrom + `
		JOIN collections c ON c.post_id = p.post_id
		WHERE c.user_id = $1 AND p.status = 1`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)`+joinClause, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}

	query := `SELECT ` + postColumns + joinClause +
		` ORDER BY c.created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("list collections: %w", err)
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
