package repository

import (
	"context"

	"futures-signal/internal/domain"
)

// CollectionsRepository 收藏Repository接口
// 列表查询直接返回帖子模型，已软删除的帖子不出现在结果中。
type CollectionsRepository interface {
	IsCollected(ctx context.Context, userID, postID int64) (bool, error)
	AddCollection(ctx context.Context, userID, postID int64) error
	RemoveCollection(ctx context.Context, userID, postID int64) error
	ListCollectedPosts(ctx context.Context, userID int64, page, size int) ([]*domain.Post, int, error)
}

// BrowseHistoryRepository 浏览历史Repository接口
// 同一用户对同一帖子只保留一条记录，重复浏览刷新时间。
type BrowseHistoryRepository interface {
	RecordBrowse(ctx context.Context, userID, postID int64) error
	ListBrowsedPosts(ctx context.Context, userID int64, page, size int) ([]*domain.Post, int, error)
	ClearHistory(ctx context.Context, userID int64) error
}
