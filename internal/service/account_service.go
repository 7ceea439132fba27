package service

import (
	"context"

	"go.uber.org/zap"

	"futures-signal/internal/repository"
)

// AccountService 个人清单服务：收藏列表与浏览历史
type AccountService interface {
	ListCollections(ctx context.Context, userID int64, page, size int) (*PostListResponse, error)
	ListBrowseHistory(ctx context.Context, userID int64, page, size int) (*PostListResponse, error)
	ClearBrowseHistory(ctx context.Context, userID int64) error
}

// accountService 实现
type accountService struct {
	collectionsRepo repository.CollectionsRepository
	historyRepo     repository.BrowseHistoryRepository
	logger          *zap.Logger
}

// NewAccountService 创建 AccountService 实例
func NewAccountService(
	collectionsRepo repository.CollectionsRepository,
	historyRepo repository.BrowseHistoryRepository,
	logger *zap.Logger,
) AccountService {
	return &accountService{
		collectionsRepo: collectionsRepo,
		historyRepo:     historyRepo,
		logger:          logger,
	}
}

// ListCollections 分页查询收藏的帖子，按收藏时间倒序
func (s *accountService) ListCollections(ctx context.Context, userID int64, page, size int) (*PostListResponse, error) {
	page, size = ClampPage(page, size)
	posts, total, err := s.collectionsRepo.ListCollectedPosts(ctx, userID, page, size)
	if err != nil {
		return nil, err
	}

	items := make([]*PostItem, 0, len(posts))
	for _, post := range posts {
		item := postItemOf(post)
		item.IsCollected = true
		items = append(items, item)
	}
	return &PostListResponse{
		Posts:      items,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: TotalPages(total, size),
	}, nil
}

// ListBrowseHistory 分页查询浏览历史，按浏览时间倒序
func (s *accountService) ListBrowseHistory(ctx context.Context, userID int64, page, size int) (*PostListResponse, error) {
	page, size = ClampPage(page, size)
	posts, total, err := s.historyRepo.ListBrowsedPosts(ctx, userID, page, size)
	if err != nil {
		return nil, err
	}

	items := make([]*PostItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, postItemOf(post))
	}
	return &PostListResponse{
		Posts:      items,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: TotalPages(total, size),
	}, nil
}

// ClearBrowseHistory 清空浏览历史
func (s *accountService) ClearBrowseHistory(ctx context.Context, userID int64) error {
	s.logger.Info("Browse history cleared", zap.Int64("user_id", userID))
	return s.historyRepo.ClearHistory(ctx, userID)
}
