package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"futures-signal/internal/domain"
)

func TestParseCSVEnglishHeaders(t *testing.T) {
	data := []byte("time,open,high,low,close,volume\n" +
		"2025-01-06,3500.0,3550.0,3480.0,3520.0,12345\n" +
		"2025-01-07,3520.0,3580.0,3510.0,3570.0,23456\n")

	bars, err := ParseCSV(data)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2025-01-06", bars[0].Time)
	assert.Equal(t, 3500.0, bars[0].Open)
	assert.Equal(t, 3570.0, bars[1].Close)
	assert.Equal(t, 23456.0, bars[1].Volume)
}

func TestParseCSVBOMHeader(t *testing.T) {
	// Excel 另存的 UTF-8 CSV 带 BOM 前缀
	data := []byte("\uFEFFtime,open,high,low,close\n" +
		"2025-01-06,3500.0,3550.0,3480.0,3520.0\n" +
		"2025-01-07,3520.0,3580.0,3510.0,3570.0\n")

	bars, err := ParseCSV(data)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2025-01-06", bars[0].Time)
}

func TestParseCSVChineseHeaders(t *testing.T) {
	data := []byte("日期,开盘价,最高价,最低价,收盘价,成交量\n" +
		"2025-01-06,720.5,731.0,718.0,728.5,\"1,234,567\"\n" +
		"2025-01-07,728.5,740.0,726.0,738.0,2345678\n")

	bars, err := ParseCSV(data)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 720.5, bars[0].Open)
	// 千分位逗号应被容忍
	assert.Equal(t, 1234567.0, bars[0].Volume)
}

func TestParseCSVGBKFallback(t *testing.T) {
	utf8Data := "日期,开盘,最高,最低,收盘\n2025-01-06,100,110,95,105\n2025-01-07,105,112,101,108\n"
	gbkData, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte(utf8Data))
	require.NoError(t, err)

	bars, err := ParseCSV(gbkData)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 105.0, bars[0].Close)
}

func TestParseCSVMissingColumn(t *testing.T) {
	data := []byte("time,open,high,low\n2025-01-06,100,110,95\n")

	_, err := ParseCSV(data)
	assert.ErrorContains(t, err, "missing required column: close")
}

func TestParseCSVSkipsBlankTimeRows(t *testing.T) {
	data := []byte("time,open,high,low,close\n" +
		"2025-01-06,100,110,95,105\n" +
		",,,,\n" +
		"2025-01-07,105,112,101,108\n")

	bars, err := ParseCSV(data)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV([]byte("time,open,high,low,close\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestValidateBars(t *testing.T) {
	valid := []domain.Bar{
		{Time: "2025-01-06", Open: 100, High: 110, Low: 95, Close: 105, Volume: 10},
		{Time: "2025-01-07", Open: 105, High: 112, Low: 101, Close: 108, Volume: 20},
	}
	assert.NoError(t, ValidateBars(valid))

	assert.ErrorContains(t, ValidateBars(valid[:1]), "at least 2 data rows")

	negative := []domain.Bar{
		{Time: "2025-01-06", Open: 100, High: 110, Low: 95, Close: 105},
		{Time: "2025-01-07", Open: -1, High: 112, Low: 101, Close: 108},
	}
	assert.ErrorContains(t, ValidateBars(negative), "prices must be positive")

	inverted := []domain.Bar{
		{Time: "2025-01-06", Open: 100, High: 110, Low: 95, Close: 105},
		{Time: "2025-01-07", Open: 105, High: 101, Low: 112, Close: 108},
	}
	assert.ErrorContains(t, ValidateBars(inverted), "high price below low price")
}
