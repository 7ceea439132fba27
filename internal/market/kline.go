package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"futures-signal/internal/domain"
	"futures-signal/internal/store"
	"futures-signal/internal/tushare"
)

// ErrNoData 指定合约无行情数据
var ErrNoData = errors.New("no kline data for contract")

// ErrUpstreamUnavailable 行情数据源不可用
var ErrUpstreamUnavailable = errors.New("market data source unavailable")

const (
	klineCacheTTL = 5 * time.Minute
	defaultDays   = 365
	maxDays       = 3650
)

// KlineService K 线行情服务
type KlineService interface {
	GetKline(ctx context.Context, contractCode string, days int) ([]domain.Bar, error)
}

type klineService struct {
	tushareClient *tushare.Client
	cache         store.KV
	logger        *zap.Logger
}

// NewKlineService 创建 K 线服务，cache 可为 MemoryKV
func NewKlineService(client *tushare.Client, cache store.KV, logger *zap.Logger) KlineService {
	return &klineService{
		tushareClient: client,
		cache:         cache,
		logger:        logger,
	}
}

// GetKline 获取合约日 K 线，按交易日升序返回
// 结果缓存 5 分钟；days 超出 [1, 3650] 时按默认 365 处理。
func (s *klineService) GetKline(ctx context.Context, contractCode string, days int) ([]domain.Bar, error) {
	if days <= 0 || days > maxDays {
		days = defaultDays
	}

	cacheKey := fmt.Sprintf("kline:%s:%d", contractCode, days)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		var bars []domain.Bar
		if err := json.Unmarshal([]byte(cached), &bars); err == nil {
			return bars, nil
		}
	}

	tsCode := tushare.ToTsCode(contractCode, "")
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	raw, err := s.tushareClient.FutDaily(ctx, tsCode,
		"", start.Format("20060102"), end.Format("20060102"))
	if err != nil {
		if errors.Is(err, tushare.ErrNotConfigured) {
			return nil, ErrUpstreamUnavailable
		}
		s.logger.Error("fetch kline failed",
			zap.String("contract_code", contractCode),
			zap.Error(err),
		)
		return nil, ErrUpstreamUnavailable
	}
	if len(raw) == 0 {
		return nil, ErrNoData
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, domain.Bar{
			Time:   formatTradeDate(b.TradeDate),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Vol,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })

	if encoded, err := json.Marshal(bars); err == nil {
		if err := s.cache.Set(ctx, cacheKey, string(encoded), klineCacheTTL); err != nil {
			s.logger.Warn("cache kline failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return bars, nil
}

// formatTradeDate 将 YYYYMMDD 转为 YYYY-MM-DD
func formatTradeDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[:4] + "-" + d[4:6] + "-" + d[6:]
}
