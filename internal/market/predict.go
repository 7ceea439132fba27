package market

import (
	"errors"
	"math"
	"math/rand"
	"sync"

	"futures-signal/internal/domain"
)

// 趋势分类
const (
	TrendUp       = "上涨"
	TrendDown     = "下跌"
	TrendSideways = "震荡"
)

// trendThreshold 预测涨跌幅超过 ±2% 判定为趋势行情
const trendThreshold = 0.02

// Forecast 价格预测结果
// Predictions 为未来 days 天的预测价格路径。
type Forecast struct {
	Predictions []float64 `json:"predictions"`
	ChangeRate  float64   `json:"change_rate"`
	Trend       string    `json:"trend"`
	Confidence  float64   `json:"confidence"`
	Fallback    bool      `json:"fallback"` // 是否为无模型时的兜底预测
}

// Engine 价格预测引擎
type Engine interface {
	Predict(bars []domain.Bar, days int) (Forecast, error)
}

// fallbackEngine 基于近期涨跌幅均值的简易预测引擎
// 在外部模型服务不可用时兜底，预测结果叠加小幅随机扰动。
type fallbackEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallbackEngine 创建兜底预测引擎
func NewFallbackEngine(seed int64) Engine {
	return &fallbackEngine{rng: rand.New(rand.NewSource(seed))}
}

func (e *fallbackEngine) Predict(bars []domain.Bar, days int) (Forecast, error) {
	if len(bars) < 2 {
		return Forecast{}, errors.New("at least 2 bars required for prediction")
	}
	if days <= 0 {
		days = 1
	}

	// 取最近 10 根 K 线的平均涨跌幅
	window := bars
	if len(window) > 10 {
		window = window[len(window)-10:]
	}
	var sum float64
	var count int
	for i := 1; i < len(window); i++ {
		prev := window[i-1].Close
		if prev <= 0 {
			continue
		}
		sum += (window[i].Close - prev) / prev
		count++
	}
	if count == 0 {
		return Forecast{}, errors.New("no usable price changes")
	}
	avgChange := sum / float64(count)

	e.mu.Lock()
	noise := (e.rng.Float64() - 0.5) * 0.01
	price := bars[len(bars)-1].Close
	predictions := make([]float64, 0, days)
	for i := 0; i < days; i++ {
		step := avgChange + (e.rng.Float64()-0.5)*0.01
		price *= 1 + step
		predictions = append(predictions, round2(price))
	}
	e.mu.Unlock()

	changeRate := avgChange + noise

	forecast := Forecast{
		Predictions: predictions,
		ChangeRate:  round4(changeRate),
		Fallback:    true,
	}
	switch {
	case changeRate > trendThreshold:
		forecast.Trend = TrendUp
		forecast.Confidence = math.Min(math.Abs(changeRate)*10, 1.0)
	case changeRate < -trendThreshold:
		forecast.Trend = TrendDown
		forecast.Confidence = math.Min(math.Abs(changeRate)*10, 1.0)
	default:
		forecast.Trend = TrendSideways
		forecast.Confidence = 0.5
	}
	forecast.Confidence = round2(forecast.Confidence)
	return forecast, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
