package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"futures-signal/internal/domain"
	"futures-signal/internal/repository"
)

// PostService 信号帖子服务接口
type PostService interface {
	ListPosts(ctx context.Context, req ListPostsRequest) (*PostListResponse, error)
	GetPost(ctx context.Context, postID, viewerID int64) (*PostItem, error)
	CreatePost(ctx context.Context, authorID int64, authorRole int, req PostPayload) (*PostItem, error)
	UpdatePost(ctx context.Context, userID int64, userRole int, postID int64, req PostUpdate) (*PostItem, error)
	DeletePost(ctx context.Context, userID int64, userRole int, postID int64) error
	ToggleCollect(ctx context.Context, userID, postID int64) (bool, error)
}

// postService 实现
type postService struct {
	postsRepo       repository.PostsRepository
	collectionsRepo repository.CollectionsRepository
	historyRepo     repository.BrowseHistoryRepository
	logger          *zap.Logger
}

// NewPostService 创建 PostService 实例
func NewPostService(
	postsRepo repository.PostsRepository,
	collectionsRepo repository.CollectionsRepository,
	historyRepo repository.BrowseHistoryRepository,
	logger *zap.Logger,
) PostService {
	return &postService{
		postsRepo:       postsRepo,
		collectionsRepo: collectionsRepo,
		historyRepo:     historyRepo,
		logger:          logger,
	}
}

// ListPostsRequest 帖子列表查询
type ListPostsRequest struct {
	Page     int
	PageSize int
	SectorID int64
	AuthorID int64 // 0 表示不过滤
	Search   string
}

// PostItem 帖子视图
type PostItem struct {
	PostID         int64      `json:"post_id"`
	AuthorID       int64      `json:"author_id"`
	AuthorNickname string     `json:"author_nickname"`
	AuthorAvatar   *string    `json:"author_avatar"`
	Title          string     `json:"title"`
	ContractCode   string     `json:"contract_code"`
	StrikePrice    *float64   `json:"strike_price"`
	StopLoss       float64    `json:"stop_loss"`
	TakeProfit     *float64   `json:"take_profit"`
	CurrentPrice   *float64   `json:"current_price"`
	Direction      string     `json:"direction"`
	Suggestion     *string    `json:"suggestion"`
	Content        string     `json:"content"`
	KLineImage     *string    `json:"k_line_image"`
	SectorID       *int64     `json:"sector_id"`
	CollectCount   int        `json:"collect_count"`
	PublishTime    time.Time  `json:"publish_time"`
	UpdatedAt      *time.Time `json:"updated_at"`
	IsCollected    bool       `json:"is_collected"`
}

// PostListResponse 帖子分页响应
type PostListResponse struct {
	Posts      []*PostItem `json:"posts"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// PostPayload 创建帖子请求
type PostPayload struct {
	Title        string   `json:"title"`
	ContractCode string   `json:"contract_code"`
	StrikePrice  *float64 `json:"strike_price"`
	StopLoss     *float64 `json:"stop_loss"`
	TakeProfit   *float64 `json:"take_profit"`
	CurrentPrice *float64 `json:"current_price"`
	Direction    string   `json:"direction"`
	Suggestion   *string  `json:"suggestion"`
	Content      string   `json:"content"`
	KLineImage   *string  `json:"k_line_image"`
	SectorID     *int64   `json:"sector_id"`
}

// PostUpdate 部分更新请求，nil 字段保持原值
type PostUpdate struct {
	Title        *string  `json:"title"`
	ContractCode *string  `json:"contract_code"`
	StrikePrice  *float64 `json:"strike_price"`
	StopLoss     *float64 `json:"stop_loss"`
	TakeProfit   *float64 `json:"take_profit"`
	Direction    *string  `json:"direction"`
	Suggestion   *string  `json:"suggestion"`
	Content      *string  `json:"content"`
	KLineImage   *string  `json:"k_line_image"`
	SectorID     *int64   `json:"sector_id"`
}

// ClampPage 分页参数规范化，page_size 限制在 [1, 100]
func ClampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// TotalPages 计算总页数
func TotalPages(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}

func postItemOf(post *domain.Post) *PostItem {
	item := &PostItem{
		PostID:         post.PostID,
		AuthorID:       post.AuthorID,
		AuthorNickname: post.AuthorNickname.String,
		Title:          post.Title,
		ContractCode:   post.ContractCode,
		StopLoss:       post.StopLoss,
		Direction:      post.Direction,
		Content:        post.Content,
		CollectCount:   post.CollectCount,
		PublishTime:    post.PublishTime,
	}
	if post.AuthorAvatar.Valid {
		item.AuthorAvatar = &post.AuthorAvatar.String
	}
	if post.StrikePrice.Valid {
		item.StrikePrice = &post.StrikePrice.Float64
	}
	if post.TakeProfit.Valid {
		item.TakeProfit = &post.TakeProfit.Float64
	}
	if post.CurrentPrice.Valid {
		item.CurrentPrice = &post.CurrentPrice.Float64
	}
	if post.Suggestion.Valid {
		item.Suggestion = &post.Suggestion.String
	}
	if post.KLineImage.Valid {
		item.KLineImage = &post.KLineImage.String
	}
	if post.SectorID.Valid {
		item.SectorID = &post.SectorID.Int64
	}
	if post.UpdatedAt.Valid {
		item.UpdatedAt = &post.UpdatedAt.Time
	}
	return item
}

// ListPosts 分页查询已发布帖子
func (s *postService) ListPosts(ctx context.Context, req ListPostsRequest) (*PostListResponse, error) {
	page, size := ClampPage(req.Page, req.PageSize)

	posts, total, err := s.postsRepo.ListPosts(ctx, repository.PostFilters{
		AuthorID: req.AuthorID,
		SectorID: req.SectorID,
		Search:   req.Search,
	}, page, size)
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

// GetPost 获取帖子详情，登录用户自动记录浏览历史并填充收藏状态
func (s *postService) GetPost(ctx context.Context, postID, viewerID int64) (*PostItem, error) {
	post, err := s.postsRepo.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("帖子不存在")
		}
		return nil, err
	}

	item := postItemOf(post)
	if viewerID > 0 {
		if err := s.historyRepo.RecordBrowse(ctx, viewerID, postID); err != nil {
			s.logger.Warn("Record browse history failed",
				zap.Int64("user_id", viewerID),
				zap.Int64("post_id", postID),
				zap.Error(err),
			)
		}
		collected, err := s.collectionsRepo.IsCollected(ctx, viewerID, postID)
		if err != nil {
			return nil, err
		}
		item.IsCollected = collected
	}
	return item, nil
}

// CreatePost 发布帖子，仅管理员可操作
func (s *postService) CreatePost(ctx context.Context, authorID int64, authorRole int, req PostPayload) (*PostItem, error) {
	if authorRole < domain.RoleAdmin {
		return nil, errForbidden("仅管理员可以发布信号")
	}
	if req.Title == "" || req.ContractCode == "" || req.Content == "" {
		return nil, errBadRequest("标题、合约代码和内容不能为空")
	}
	if req.StopLoss == nil {
		return nil, errBadRequest("止损价不能为空")
	}
	direction := req.Direction
	if direction == "" {
		direction = domain.DirectionBuy
	}
	if direction != domain.DirectionBuy && direction != domain.DirectionSell {
		return nil, errBadRequest("买卖方向必须为 buy 或 sell")
	}

	post := &domain.Post{
		AuthorID:     authorID,
		Title:        req.Title,
		ContractCode: req.ContractCode,
		StopLoss:     *req.StopLoss,
		Direction:    direction,
		Content:      req.Content,
	}
	if req.StrikePrice != nil {
		post.StrikePrice = sql.NullFloat64{Float64: *req.StrikePrice, Valid: true}
	}
	if req.TakeProfit != nil {
		post.TakeProfit = sql.NullFloat64{Float64: *req.TakeProfit, Valid: true}
	}
	if req.CurrentPrice != nil {
		post.CurrentPrice = sql.NullFloat64{Float64: *req.CurrentPrice, Valid: true}
	}
	if req.Suggestion != nil {
		post.Suggestion = sql.NullString{String: *req.Suggestion, Valid: true}
	}
	if req.KLineImage != nil {
		post.KLineImage = sql.NullString{String: *req.KLineImage, Valid: true}
	}
	if req.SectorID != nil {
		post.SectorID = sql.NullInt64{Int64: *req.SectorID, Valid: true}
	}

	postID, err := s.postsRepo.CreatePost(ctx, post)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Post created",
		zap.Int64("post_id", postID),
		zap.Int64("author_id", authorID),
		zap.String("contract_code", req.ContractCode),
	)

	created, err := s.postsRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return postItemOf(created), nil
}

// UpdatePost 部分更新帖子，仅作者本人（管理员）可操作
func (s *postService) UpdatePost(ctx context.Context, userID int64, userRole int, postID int64, req PostUpdate) (*PostItem, error) {
	post, err := s.postsRepo.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("帖子不存在")
		}
		return nil, err
	}
	if userRole < domain.RoleAdmin || post.AuthorID != userID {
		return nil, errNotFound("帖子不存在")
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.ContractCode != nil {
		post.ContractCode = *req.ContractCode
	}
	if req.StrikePrice != nil {
		post.StrikePrice = sql.NullFloat64{Float64: *req.StrikePrice, Valid: true}
	}
	if req.StopLoss != nil {
		post.StopLoss = *req.StopLoss
	}
	if req.TakeProfit != nil {
		post.TakeProfit = sql.NullFloat64{Float64: *req.TakeProfit, Valid: true}
	}
	if req.Direction != nil {
		if *req.Direction != domain.DirectionBuy && *req.Direction != domain.DirectionSell {
			return nil, errBadRequest("买卖方向必须为 buy 或 sell")
		}
		post.Direction = *req.Direction
	}
	if req.Suggestion != nil {
		post.Suggestion = sql.NullString{String: *req.Suggestion, Valid: true}
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.KLineImage != nil {
		post.KLineImage = sql.NullString{String: *req.KLineImage, Valid: true}
	}
	if req.SectorID != nil {
		post.SectorID = sql.NullInt64{Int64: *req.SectorID, Valid: true}
	}

	if err := s.postsRepo.UpdatePost(ctx, postID, post); err != nil {
		return nil, err
	}
	updated, err := s.postsRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return postItemOf(updated), nil
}

// DeletePost 软删除帖子，作者本人或管理员可操作
func (s *postService) DeletePost(ctx context.Context, userID int64, userRole int, postID int64) error {
	post, err := s.postsRepo.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errNotFound("帖子不存在")
		}
		return err
	}
	if post.AuthorID != userID && userRole < domain.RoleAdmin {
		return errForbidden("无权删除该帖子")
	}

	if err := s.postsRepo.SoftDeletePost(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errNotFound("帖子不存在")
		}
		return err
	}
	s.logger.Info("Post soft deleted",
		zap.Int64("post_id", postID),
		zap.Int64("operator_id", userID),
	)
	return nil
}

// ToggleCollect 收藏/取消收藏，返回切换后的收藏状态
func (s *postService) ToggleCollect(ctx context.Context, userID, postID int64) (bool, error) {
	if _, err := s.postsRepo.GetPost(ctx, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, errNotFound("帖子不存在")
		}
		return false, err
	}

	collected, err := s.collectionsRepo.IsCollected(ctx, userID, postID)
	if err != nil {
		return false, err
	}

	if collected {
		if err := s.collectionsRepo.RemoveCollection(ctx, userID, postID); err != nil {
			return false, err
		}
		if err := s.postsRepo.AdjustCollectCount(ctx, postID, -1); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.collectionsRepo.AddCollection(ctx, userID, postID); err != nil {
		return false, err
	}
	if err := s.postsRepo.AdjustCollectCount(ctx, postID, 1); err != nil {
		return false, err
	}
	return true, nil
}
