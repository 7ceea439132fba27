package repository

import (
	"context"
	"time"

	"futures-signal/internal/domain"
)

// ContractsRepository 期货合约Repository接口
// futures_contracts 是 Tushare fut_basic 的本地镜像，由同步任务维护。
type ContractsRepository interface {
	GetByCode(ctx context.Context, contractCode string) (*domain.Contract, error)
	UpsertContract(ctx context.Context, contract *domain.Contract) error
	ListExpiredCodes(ctx context.Context, asOf time.Time) ([]string, error)
	DeactivateByCodes(ctx context.Context, contractCodes []string) (int64, error)
}
