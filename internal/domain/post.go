package domain

import (
	"database/sql"
	"time"
)

// 帖子状态
const (
	PostStatusDeleted   = 0 // 软删除
	PostStatusPublished = 1 // 已发布
)

// 买卖方向
const (
	DirectionBuy  = "buy"  // 做多
	DirectionSell = "sell" // 做空
)

// Post 信号帖子领域模型（对应 posts 表）
// stop_loss 必填，take_profit/strike_price/current_price 可空。
type Post struct {
	PostID         int64           `db:"post_id"`
	AuthorID       int64           `db:"author_id"`
	Title          string          `db:"title"`
	ContractCode   string          `db:"contract_code"`
	StrikePrice    sql.NullFloat64 `db:"strike_price"`
	StopLoss       float64         `db:"stop_loss"`
	TakeProfit     sql.NullFloat64 `db:"take_profit"`
	CurrentPrice   sql.NullFloat64 `db:"current_price"`
	Direction      string          `db:"direction"`
	Suggestion     sql.NullString  `db:"suggestion"`
	Content        string          `db:"content"`
	KLineImage     sql.NullString  `db:"k_line_image"`
	SectorID       sql.NullInt64   `db:"sector_id"`
	CollectCount   int             `db:"collect_count"`
	Status         int             `db:"status"`
	PublishTime    time.Time       `db:"publish_time"`
	UpdatedAt      sql.NullTime    `db:"updated_at"`
	AuthorNickname sql.NullString  `db:"author_nickname"` // 联表查询填充
	AuthorAvatar   sql.NullString  `db:"author_avatar"`   // 联表查询填充
}

// Draft 草稿领域模型（对应 drafts 表），所有业务字段可空
type Draft struct {
	DraftID      int64           `db:"draft_id"`
	UserID       int64           `db:"user_id"`
	Title        sql.NullString  `db:"title"`
	ContractCode sql.NullString  `db:"contract_code"`
	StopLoss     sql.NullFloat64 `db:"stop_loss"`
	TakeProfit   sql.NullFloat64 `db:"take_profit"`
	Content      sql.NullString  `db:"content"`
	KLineImage   sql.NullString  `db:"k_line_image"`
	UpdateTime   time.Time       `db:"update_time"`
}

// Collection 收藏记录（对应 collections 表）
type Collection struct {
	CollectionID int64     `db:"collection_id"`
	UserID       int64     `db:"user_id"`
	PostID       int64     `db:"post_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// BrowseHistory 浏览历史（对应 browse_history 表），同一帖子只保留一条并刷新时间
type BrowseHistory struct {
	HistoryID  int64     `db:"history_id"`
	UserID     int64     `db:"user_id"`
	PostID     int64     `db:"post_id"`
	BrowseTime time.Time `db:"browse_time"`
}
