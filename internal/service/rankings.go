package service

import (
	"context"
	"net/http"
)

// SectorRanking 板块热度排行条目
type SectorRanking struct {
	SectorID   int64   `json:"sector_id"`
	SectorName string  `json:"sector_name"`
	Score      float64 `json:"score"`
}

// RankingProvider 板块排行数据提供方
// 上游数据源尚未接入，当前实现统一返回 503。
type RankingProvider interface {
	SectorRankings(ctx context.Context) ([]SectorRanking, error)
}

// unavailableRankingProvider 占位实现
type unavailableRankingProvider struct{}

// NewUnavailableRankingProvider 创建占位排行数据源
func NewUnavailableRankingProvider() RankingProvider {
	return unavailableRankingProvider{}
}

func (unavailableRankingProvider) SectorRankings(ctx context.Context) ([]SectorRanking, error) {
	return nil, NewError(http.StatusServiceUnavailable, "not yet available")
}
