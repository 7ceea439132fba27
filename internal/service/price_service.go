package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"futures-signal/internal/repository"
	"futures-signal/internal/store"
	"futures-signal/internal/tushare"
)

// PriceService 帖子现价刷新服务，由定时任务驱动，管理员可手动触发
type PriceService interface {
	// RefreshPrices 刷新在用合约的最新价格，返回更新的合约数
	RefreshPrices(ctx context.Context) (int, error)
	// RefreshContract 刷新指定合约的现价，返回最新价与受影响帖子数
	RefreshContract(ctx context.Context, contractCode string) (float64, int64, error)
}

// priceService 实现
type priceService struct {
	postsRepo     repository.PostsRepository
	tushareClient *tushare.Client
	cache         store.KV
	logger        *zap.Logger
}

// NewPriceService 创建 PriceService 实例
func NewPriceService(
	postsRepo repository.PostsRepository,
	tushareClient *tushare.Client,
	cache store.KV,
	logger *zap.Logger,
) PriceService {
	return &priceService{
		postsRepo:     postsRepo,
		tushareClient: tushareClient,
		cache:         cache,
		logger:        logger,
	}
}

const priceCacheTTL = 10 * time.Minute

// cachedPrice Redis 中缓存的价格条目
type cachedPrice struct {
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshPrices 逐合约查询最新价并刷新帖子现价
// 单个合约失败只记日志，不中断整轮刷新。
func (s *priceService) RefreshPrices(ctx context.Context) (int, error) {
	if !s.tushareClient.Configured() {
		s.logger.Debug("Price refresh skipped: data source not configured")
		return 0, nil
	}

	codes, err := s.postsRepo.ListActiveContractCodes(ctx)
	if err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}

	updated := 0
	for _, code := range codes {
		price, ok, err := s.tushareClient.LatestPrice(ctx, tushare.ToTsCode(code, ""))
		if err != nil {
			s.logger.Warn("Fetch latest price failed",
				zap.String("contract_code", code),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		if _, err := s.postsRepo.UpdateCurrentPrice(ctx, code, price); err != nil {
			s.logger.Warn("Update current price failed",
				zap.String("contract_code", code),
				zap.Error(err),
			)
			continue
		}

		entry, _ := json.Marshal(cachedPrice{Price: price, UpdatedAt: time.Now()})
		if err := s.cache.Set(ctx, fmt.Sprintf("price:%s", code), string(entry), priceCacheTTL); err != nil {
			s.logger.Warn("Cache price failed", zap.String("contract_code", code), zap.Error(err))
		}
		updated++
	}

	s.logger.Info("Prices refreshed",
		zap.Int("contracts", len(codes)),
		zap.Int("updated", updated),
	)
	return updated, nil
}

// RefreshContract 查询单个合约的最新价并刷新对应帖子
func (s *priceService) RefreshContract(ctx context.Context, contractCode string) (float64, int64, error) {
	if !s.tushareClient.Configured() {
		return 0, 0, NewError(503, "行情数据源未配置")
	}

	price, ok, err := s.tushareClient.LatestPrice(ctx, tushare.ToTsCode(contractCode, ""))
	if err != nil {
		return 0, 0, fmt.Errorf("fetch latest price for %s: %w", contractCode, err)
	}
	if !ok {
		return 0, 0, errNotFound("未查询到该合约的行情")
	}

	affected, err := s.postsRepo.UpdateCurrentPrice(ctx, contractCode, price)
	if err != nil {
		return 0, 0, err
	}

	entry, _ := json.Marshal(cachedPrice{Price: price, UpdatedAt: time.Now()})
	if err := s.cache.Set(ctx, fmt.Sprintf("price:%s", contractCode), string(entry), priceCacheTTL); err != nil {
		s.logger.Warn("Cache price failed", zap.String("contract_code", contractCode), zap.Error(err))
	}

	s.logger.Info("Contract price refreshed",
		zap.String("contract_code", contractCode),
		zap.Float64("price", price),
		zap.Int64("posts", affected),
	)
	return price, affected, nil
}
