package tushare

import (
	"context"
	"time"
)

// LatestDaily 获取合约最近一个交易日的日线数据
// 向前回看 15 个自然日以覆盖节假日；无数据时 ok 为 false。
func (c *Client) LatestDaily(ctx context.Context, tsCode string) (DailyBar, bool, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -15)

	bars, err := c.FutDaily(ctx, tsCode, "", start.Format("20060102"), end.Format("20060102"))
	if err != nil {
		return DailyBar{}, false, err
	}
	if len(bars) == 0 {
		return DailyBar{}, false, nil
	}

	// fut_daily 返回按日期倒序，取日期最大的一行以防接口行为变化
	latest := bars[0]
	for _, b := range bars[1:] {
		if b.TradeDate > latest.TradeDate {
			latest = b
		}
	}
	return latest, true, nil
}

// LatestPrice 获取合约最新价格，优先收盘价，其次结算价
func (c *Client) LatestPrice(ctx context.Context, tsCode string) (float64, bool, error) {
	bar, ok, err := c.LatestDaily(ctx, tsCode)
	if err != nil || !ok {
		return 0, false, err
	}
	switch {
	case bar.Close > 0:
		return bar.Close, true, nil
	case bar.Settle > 0:
		return bar.Settle, true, nil
	default:
		return 0, false, nil
	}
}
