package market

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"futures-signal/internal/domain"
)

// ErrEmptyFile 文件无有效数据行
var ErrEmptyFile = errors.New("file contains no data rows")

// 表头别名 -> 规范列名，统一处理中英文表头
var headerAliases = map[string]string{
	"time": "time", "date": "date", "trade_date": "time", "datetime": "time",
	"时间": "time", "日期": "time", "交易日期": "time",
	"open": "open", "开盘": "open", "开盘价": "open",
	"high": "high", "最高": "high", "最高价": "high",
	"low": "low", "最低": "low", "最低价": "low",
	"close": "close", "收盘": "close", "收盘价": "close",
	"volume": "volume", "vol": "volume", "成交量": "volume", "成交手数": "volume",
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	h = strings.TrimPrefix(h, "\uFEFF")
	if canonical, ok := headerAliases[h]; ok {
		if canonical == "date" {
			return "time"
		}
		return canonical
	}
	return h
}

// parseNumber 解析数值，容忍千分位逗号与空白
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

// ParseCSV 解析 CSV 行情文件
// 非 UTF-8 编码按 GBK 回退解码；行顺序与文件一致。
func ParseCSV(data []byte) ([]domain.Bar, error) {
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("decode file: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rowsToBars(rows)
}

// ParseXLSX 解析 Excel 行情文件，读取第一个工作表
func ParseXLSX(data []byte) ([]domain.Bar, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	return rowsToBars(rows)
}

func rowsToBars(rows [][]string) ([]domain.Bar, error) {
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}

	colIndex := map[string]int{}
	for i, h := range rows[0] {
		name := normalizeHeader(h)
		if _, seen := colIndex[name]; !seen {
			colIndex[name] = i
		}
	}
	for _, required := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}
	volIdx, hasVol := colIndex["volume"]

	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	bars := make([]domain.Bar, 0, len(rows)-1)
	for lineNo, row := range rows[1:] {
		t := cell(row, colIndex["time"])
		if t == "" {
			continue
		}
		open, err := parseNumber(cell(row, colIndex["open"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid open value", lineNo+2)
		}
		high, err := parseNumber(cell(row, colIndex["high"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid high value", lineNo+2)
		}
		low, err := parseNumber(cell(row, colIndex["low"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid low value", lineNo+2)
		}
		closeP, err := parseNumber(cell(row, colIndex["close"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid close value", lineNo+2)
		}

		bar := domain.Bar{Time: t, Open: open, High: high, Low: low, Close: closeP}
		if hasVol {
			if v, err := parseNumber(cell(row, volIdx)); err == nil {
				bar.Volume = v
			}
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, ErrEmptyFile
	}
	return bars, nil
}
