package tushare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestToTsCode(t *testing.T) {
	tests := []struct {
		name         string
		contractCode string
		exchange     string
		want         string
	}{
		{"股指期货", "IF2512", "", "IF2512.CFX"},
		{"国债期货", "T2512", "", "T2512.CFX"},
		{"铁矿石单字母品种", "I2603", "", "I2603.DCE"},
		{"玉米单字母品种", "C2605", "", "C2605.DCE"},
		{"沪铜", "CU2601", "", "CU2601.SHF"},
		{"螺纹钢", "RB2605", "", "RB2605.SHF"},
		{"棉花", "CF2605", "", "CF2605.ZCE"},
		{"原油", "SC2603", "", "SC2603.INE"},
		{"工业硅", "SI2606", "", "SI2606.GFE"},
		{"小写代码", "cu2601", "", "cu2601.SHF"},
		{"未知品种默认上期所", "XX2601", "", "XX2601.SHF"},
		{"显式交易所优先", "I2603", "DCE", "I2603.DCE"},
		{"显式郑商所", "AP2605", "CZCE", "AP2605.ZCE"},
		{"已带后缀原样返回", "CU2601.SHF", "", "CU2601.SHF"},
		{"空代码", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTsCode(tt.contractCode, tt.exchange))
		})
	}
}

func TestFromTsCode(t *testing.T) {
	assert.Equal(t, "CU2601", FromTsCode("CU2601.SHF"))
	assert.Equal(t, "I2603", FromTsCode("I2603.DCE"))
	assert.Equal(t, "CU2601", FromTsCode("CU2601"))
}

func TestClientNotConfigured(t *testing.T) {
	c := NewClient("http://api.tushare.pro", "", zap.NewNop())

	assert.False(t, c.Configured())

	_, err := c.FutDaily(context.Background(), "CU2601.SHF", "", "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.FutBasic(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
