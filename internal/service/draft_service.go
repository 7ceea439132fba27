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

// DraftService 草稿服务接口，所有操作限定草稿归属用户
type DraftService interface {
	ListDrafts(ctx context.Context, userID int64, page, size int) (*DraftListResponse, error)
	GetDraft(ctx context.Context, userID, draftID int64) (*DraftItem, error)
	SaveDraft(ctx context.Context, userID int64, req DraftPayload) (*DraftItem, error)
	UpdateDraft(ctx context.Context, userID, draftID int64, req DraftPayload) (*DraftItem, error)
	DeleteDraft(ctx context.Context, userID, draftID int64) error
}

// draftService 实现
type draftService struct {
	draftsRepo repository.DraftsRepository
	logger     *zap.Logger
}

// NewDraftService 创建 DraftService 实例
func NewDraftService(draftsRepo repository.DraftsRepository, logger *zap.Logger) DraftService {
	return &draftService{draftsRepo: draftsRepo, logger: logger}
}

// DraftPayload 草稿内容，所有字段可空
type DraftPayload struct {
	Title        *string  `json:"title"`
	ContractCode *string  `json:"contract_code"`
	StopLoss     *float64 `json:"stop_loss"`
	TakeProfit   *float64 `json:"take_profit"`
	Content      *string  `json:"content"`
	KLineImage   *string  `json:"k_line_image"`
}

// DraftItem 草稿视图
type DraftItem struct {
	DraftID      int64     `json:"draft_id"`
	Title        *string   `json:"title"`
	ContractCode *string   `json:"contract_code"`
	StopLoss     *float64  `json:"stop_loss"`
	TakeProfit   *float64  `json:"take_profit"`
	Content      *string   `json:"content"`
	KLineImage   *string   `json:"k_line_image"`
	UpdateTime   time.Time `json:"update_time"`
}

// DraftListResponse 草稿分页响应
type DraftListResponse struct {
	Drafts   []*DraftItem `json:"drafts"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

func draftItemOf(draft *domain.Draft) *DraftItem {
	item := &DraftItem{
		DraftID:    draft.DraftID,
		UpdateTime: draft.UpdateTime,
	}
	if draft.Title.Valid {
		item.Title = &draft.Title.String
	}
	if draft.ContractCode.Valid {
		item.ContractCode = &draft.ContractCode.String
	}
	if draft.StopLoss.Valid {
		item.StopLoss = &draft.StopLoss.Float64
	}
	if draft.TakeProfit.Valid {
		item.TakeProfit = &draft.TakeProfit.Float64
	}
	if draft.Content.Valid {
		item.Content = &draft.Content.String
	}
	if draft.KLineImage.Valid {
		item.KLineImage = &draft.KLineImage.String
	}
	return item
}

func draftOf(userID int64, req DraftPayload) *domain.Draft {
	draft := &domain.Draft{UserID: userID}
	applyDraftPayload(draft, req)
	return draft
}

// ListDrafts 分页查询当前用户草稿
func (s *draftService) ListDrafts(ctx context.Context, userID int64, page, size int) (*DraftListResponse, error) {
	page, size = ClampPage(page, size)
	drafts, total, err := s.draftsRepo.ListDrafts(ctx, userID, page, size)
	if err != nil {
		return nil, err
	}
	items := make([]*DraftItem, 0, len(drafts))
	for _, draft := range drafts {
		items = append(items, draftItemOf(draft))
	}
	return &DraftListResponse{Drafts: items, Total: total, Page: page, PageSize: size}, nil
}

// getOwned 获取草稿并校验归属，他人草稿按不存在处理
func (s *draftService) getOwned(ctx context.Context, userID, draftID int64) (*domain.Draft, error) {
	draft, err := s.draftsRepo.GetDraft(ctx, draftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("草稿不存在")
		}
		return nil, err
	}
	if draft.UserID != userID {
		return nil, errNotFound("草稿不存在")
	}
	return draft, nil
}

// GetDraft 获取单条草稿
func (s *draftService) GetDraft(ctx context.Context, userID, draftID int64) (*DraftItem, error) {
	draft, err := s.getOwned(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	return draftItemOf(draft), nil
}

// SaveDraft 创建草稿
func (s *draftService) SaveDraft(ctx context.Context, userID int64, req DraftPayload) (*DraftItem, error) {
	draftID, err := s.draftsRepo.CreateDraft(ctx, draftOf(userID, req))
	if err != nil {
		return nil, err
	}
	draft, err := s.draftsRepo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return draftItemOf(draft), nil
}

// applyDraftPayload 仅覆盖请求中携带的字段，未携带的保持原值
func applyDraftPayload(draft *domain.Draft, req DraftPayload) {
	if req.Title != nil {
		draft.Title = sql.NullString{String: *req.Title, Valid: true}
	}
	if req.ContractCode != nil {
		draft.ContractCode = sql.NullString{String: *req.ContractCode, Valid: true}
	}
	if req.StopLoss != nil {
		draft.StopLoss = sql.NullFloat64{Float64: *req.StopLoss, Valid: true}
	}
	if req.TakeProfit != nil {
		draft.TakeProfit = sql.NullFloat64{Float64: *req.TakeProfit, Valid: true}
	}
	if req.Content != nil {
		draft.Content = sql.NullString{String: *req.Content, Valid: true}
	}
	if req.KLineImage != nil {
		draft.KLineImage = sql.NullString{String: *req.KLineImage, Valid: true}
	}
}

// UpdateDraft 更新草稿，部分更新语义
func (s *draftService) UpdateDraft(ctx context.Context, userID, draftID int64, req DraftPayload) (*DraftItem, error) {
	draft, err := s.getOwned(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	applyDraftPayload(draft, req)
	if err := s.draftsRepo.UpdateDraft(ctx, draftID, draft); err != nil {
		return nil, err
	}
	draft, err = s.draftsRepo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return draftItemOf(draft), nil
}

// DeleteDraft 删除草稿
func (s *draftService) DeleteDraft(ctx context.Context, userID, draftID int64) error {
	if _, err := s.getOwned(ctx, userID, draftID); err != nil {
		return err
	}
	return s.draftsRepo.DeleteDraft(ctx, draftID)
}
