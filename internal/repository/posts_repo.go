package repository

import (
	"context"

	"futures-signal/internal/domain"
)

// PostsRepository 信号帖子Repository接口
// 删除均为软删除（status 置 0），列表查询联表填充作者昵称与头像。
type PostsRepository interface {
	GetPost(ctx context.Context, postID int64) (*domain.Post, error)
	ListPosts(ctx context.Context, filters PostFilters, page, size int) ([]*domain.Post, int, error)
	CreatePost(ctx context.Context, post *domain.Post) (int64, error)
	UpdatePost(ctx context.Context, postID int64, post *domain.Post) error
	SoftDeletePost(ctx context.Context, postID int64) error

	AdjustCollectCount(ctx context.Context, postID int64, delta int) error
	UpdateCurrentPrice(ctx context.Context, contractCode string, price float64) (int64, error)
	SoftDeleteByContractCodes(ctx context.Context, contractCodes []string) (int64, error)
	ListActiveContractCodes(ctx context.Context) ([]string, error)
}

// PostFilters 帖子查询过滤器
type PostFilters struct {
	AuthorID     int64  // 0 表示不过滤
	ContractCode string
	SectorID     int64
	Search       string // 模糊搜索：contract_code, title
}
