package market

import (
	"fmt"

	"futures-signal/internal/domain"
)

// ValidateBars 校验上传行情数据的完整性
// 要求至少 2 行、价格为正、最高价不低于最低价。
func ValidateBars(bars []domain.Bar) error {
	if len(bars) < 2 {
		return fmt.Errorf("at least 2 data rows required, got %d", len(bars))
	}
	for i, b := range bars {
		rowNo := i + 1
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("row %d: prices must be positive", rowNo)
		}
		if b.High < b.Low {
			return fmt.Errorf("row %d: high price below low price", rowNo)
		}
		if b.High < b.Open || b.High < b.Close {
			return fmt.Errorf("row %d: high price below open/close", rowNo)
		}
		if b.Low > b.Open || b.Low > b.Close {
			return fmt.Errorf("row %d: low price above open/close", rowNo)
		}
		if b.Volume < 0 {
			return fmt.Errorf("row %d: volume must not be negative", rowNo)
		}
	}
	return nil
}
