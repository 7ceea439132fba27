package repository

import (
	"context"
	"database/sql"
	"fmt"

	"futures-signal/internal/domain"
)

// PostgresDraftsRepository 草稿Repository实现
type PostgresDraftsRepository struct {
	db *sql.DB
}

// NewPostgresDraftsRepository 创建草稿Repository
func NewPostgresDraftsRepository(db *sql.DB) *PostgresDraftsRepository {
	return &PostgresDraftsRepository{db: db}
}

var _ DraftsRepository = (*PostgresDraftsRepository)(nil)

const draftColumns = `
	draft_id, user_id, title, contract_code, stop_loss, take_profit,
	content, k_line_image, update_time
`

func scanDraft(row interface{ Scan(...any) error }) (*domain.Draft, error) {
	var draft domain.Draft
	err := row.Scan(
		&draft.DraftID,
		&draft.UserID,
		&draft.Title,
		&draft.ContractCode,
		&draft.StopLoss,
		&draft.TakeProfit,
		&draft.Content,
		&draft.KLineImage,
		&draft.UpdateTime,
	)
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// GetDraft 获取单条草稿
func (r *PostgresDraftsRepository) GetDraft(ctx context.Context, draftID int64) (*domain.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE draft_id = $1`
	return scanDraft(r.db.QueryRowContext(ctx, query, draftID))
}

// ListDrafts 分页查询用户草稿，按更新时间倒序
func (r *PostgresDraftsRepository) ListDrafts(ctx context.Context, userID int64, page, size int) ([]*domain.Draft, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM drafts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count drafts: %w", err)
	}

	query := `SELECT ` + draftColumns + `
		FROM drafts WHERE user_id = $1
		ORDER BY update_time DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*domain.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, 0, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, total, rows.Err()
}

// CreateDraft 创建草稿，返回新草稿ID
func (r *PostgresDraftsRepository) CreateDraft(ctx context.Context, draft *domain.Draft) (int64, error) {
	query := `
		INSERT INTO drafts (user_id, title, contract_code, stop_loss, take_profit, content, k_line_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING draft_id
	`
	var draftID int64
	err := r.db.QueryRowContext(ctx, query,
		draft.UserID,
		draft.Title,
		draft.ContractCode,
		draft.StopLoss,
		draft.TakeProfit,
		draft.Content,
		draft.KLineImage,
	).Scan(&draftID)
	if err != nil {
		return 0, err
	}
	return draftID, nil
}

// UpdateDraft 更新草稿并刷新更新时间
func (r *PostgresDraftsRepository) UpdateDraft(ctx context.Context, draftID int64, draft *domain.Draft) error {
	query := `
		UPDATE drafts SET
			title = $1,
			contract_code = $2,
			stop_loss = $3,
			take_profit = $4,
			content = $5,
			k_line_image = $6,
			update_time = now()
		WHERE draft_id = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		draft.Title,
		draft.ContractCode,
		draft.StopLoss,
		draft.TakeProfit,
		draft.Content,
		draft.KLineImage,
		draftID,
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

// DeleteDraft 删除草稿
func (r *PostgresDraftsRepository) DeleteDraft(ctx context.Context, draftID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE draft_id = $1`, draftID)
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
