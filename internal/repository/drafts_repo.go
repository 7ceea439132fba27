package repository

import (
	"context"

	"futures-signal/internal/domain"
)

// DraftsRepository 草稿Repository接口
type DraftsRepository interface {
	GetDraft(ctx context.Context, draftID int64) (*domain.Draft, error)
	ListDrafts(ctx context.Context, userID int64, page, size int) ([]*domain.Draft, int, error)
	CreateDraft(ctx context.Context, draft *domain.Draft) (int64, error)
	UpdateDraft(ctx context.Context, draftID int64, draft *domain.Draft) error
	DeleteDraft(ctx context.Context, draftID int64) error
}
