package tushare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNotConfigured TUSHARE_TOKEN 未配置
var ErrNotConfigured = errors.New("tushare token is not configured")

// request Tushare Pro API 请求体
type request struct {
	APIName string         `json:"api_name"`
	Token   string         `json:"token"`
	Params  map[string]any `json:"params"`
	Fields  string         `json:"fields,omitempty"`
}

// response Tushare Pro API 响应体
type response struct {
	Code int     `json:"code"`
	Msg  string  `json:"msg"`
	Data dataSet `json:"data"`
}

type dataSet struct {
	Fields []string          `json:"fields"`
	Items  []json.RawMessage `json:"items"`
}

// DailyBar fut_daily 单行数据
type DailyBar struct {
	TsCode    string
	TradeDate string // YYYYMMDD
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Settle    float64
	Vol       float64
}

// BasicInfo fut_basic 单行数据
type BasicInfo struct {
	TsCode     string
	Symbol     string
	Exchange   string
	Name       string
	Multiplier float64
	ListDate   string // YYYYMMDD
	DelistDate string // YYYYMMDD
}

// Client Tushare Pro 行情数据客户端
type Client struct {
	httpClient *resty.Client
	token      string
	logger     *zap.Logger
}

// NewClient 创建 Tushare 客户端；token 为空时所有调用返回 ErrNotConfigured
func NewClient(apiURL, token string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		token:      token,
		logger:     logger,
	}
}

// Configured 是否已配置 token
func (c *Client) Configured() bool {
	return c.token != ""
}

func (c *Client) query(ctx context.Context, apiName string, params map[string]any, fields string) (*dataSet, error) {
	if c.token == "" {
		return nil, ErrNotConfigured
	}

	var resp response
	httpResp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request{APIName: apiName, Token: c.token, Params: params, Fields: fields}).
		SetResult(&resp).
		Post("")
	if err != nil {
		c.logger.Error("Tushare API call failed",
			zap.String("api_name", apiName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("tushare %s: %w", apiName, err)
	}
	if httpResp.StatusCode() != 200 {
		return nil, fmt.Errorf("tushare %s: unexpected status %d", apiName, httpResp.StatusCode())
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("tushare %s: %s", apiName, resp.Msg)
	}
	return &resp.Data, nil
}

// FutDaily 获取期货日线行情
// tsCode/tradeDate/startDate/endDate 均可选，为空时不作为过滤条件。
func (c *Client) FutDaily(ctx context.Context, tsCode, tradeDate, startDate, endDate string) ([]DailyBar, error) {
	params := map[string]any{}
	if tsCode != "" {
		params["ts_code"] = tsCode
	}
	if tradeDate != "" {
		params["trade_date"] = tradeDate
	}
	if startDate != "" {
		params["start_date"] = startDate
	}
	if endDate != "" {
		params["end_date"] = endDate
	}

	data, err := c.query(ctx, "fut_daily", params,
		"ts_code,trade_date,open,high,low,close,settle,vol")
	if err != nil {
		return nil, err
	}

	idx := fieldIndex(data.Fields)
	bars := make([]DailyBar, 0, len(data.Items))
	for _, raw := range data.Items {
		var row []any
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		bar := DailyBar{
			TsCode:    stringAt(row, idx["ts_code"]),
			TradeDate: stringAt(row, idx["trade_date"]),
			Open:      floatAt(row, idx["open"]),
			High:      floatAt(row, idx["high"]),
			Low:       floatAt(row, idx["low"]),
			Close:     floatAt(row, idx["close"]),
			Settle:    floatAt(row, idx["settle"]),
			Vol:       floatAt(row, idx["vol"]),
		}
		if bar.TradeDate == "" {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// FutBasic 获取期货合约基础信息；exchange 为空表示全部交易所
func (c *Client) FutBasic(ctx context.Context, exchange string) ([]BasicInfo, error) {
	params := map[string]any{}
	if exchange != "" {
		params["exchange"] = exchange
	}

	data, err := c.query(ctx, "fut_basic", params,
		"ts_code,symbol,exchange,name,multiplier,list_date,delist_date")
	if err != nil {
		return nil, err
	}

	idx := fieldIndex(data.Fields)
	infos := make([]BasicInfo, 0, len(data.Items))
	for _, raw := range data.Items {
		var row []any
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		info := BasicInfo{
			TsCode:     stringAt(row, idx["ts_code"]),
			Symbol:     stringAt(row, idx["symbol"]),
			Exchange:   stringAt(row, idx["exchange"]),
			Name:       stringAt(row, idx["name"]),
			Multiplier: floatAt(row, idx["multiplier"]),
			ListDate:   stringAt(row, idx["list_date"]),
			DelistDate: stringAt(row, idx["delist_date"]),
		}
		if info.TsCode == "" {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func fieldIndex(fields []string) map[string]int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f] = i
	}
	return idx
}

func stringAt(row []any, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}

func floatAt(row []any, i int) float64 {
	if i < 0 || i >= len(row) {
		return 0
	}
	switch v := row[i].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

var symbolRe = regexp.MustCompile(`^([A-Za-z]+)`)

// 品种 -> Tushare 交易所后缀（SHF/DCE/ZCE/CFX/INE/GFE）
// 单字母品种（如 I 铁矿石、C 玉米）必须显式映射，否则会误判为 SHF。
var symbolExchangeSuffix = map[string]string{
	// 中金所 CFFEX
	"IF": "CFX", "IH": "CFX", "IC": "CFX", "IM": "CFX",
	"T": "CFX", "TF": "CFX", "TS": "CFX", "TL": "CFX",
	// 大商所 DCE
	"C": "DCE", "A": "DCE", "M": "DCE", "Y": "DCE", "P": "DCE", "JD": "DCE",
	"L": "DCE", "V": "DCE", "PP": "DCE", "EB": "DCE", "EG": "DCE",
	"I": "DCE", "J": "DCE", "JM": "DCE", "FB": "DCE", "BB": "DCE", "LG": "DCE",
	// 郑商所 CZCE
	"CF": "ZCE", "SR": "ZCE", "TA": "ZCE", "OI": "ZCE", "MA": "ZCE", "FG": "ZCE",
	"RM": "ZCE", "ZC": "ZCE", "SF": "ZCE", "SM": "ZCE", "AP": "ZCE", "CJ": "ZCE",
	"UR": "ZCE", "SA": "ZCE", "PF": "ZCE", "PK": "ZCE", "LH": "ZCE", "RI": "ZCE",
	"LR": "ZCE", "JR": "ZCE", "PM": "ZCE", "WH": "ZCE", "CY": "ZCE", "PL": "ZCE",
	"SH": "ZCE",
	// 上期所 SHFE
	"CU": "SHF", "AL": "SHF", "ZN": "SHF", "PB": "SHF", "NI": "SHF", "SN": "SHF",
	"AU": "SHF", "AG": "SHF", "RB": "SHF", "HC": "SHF", "SS": "SHF", "BU": "SHF",
	"RU": "SHF", "FU": "SHF", "WR": "SHF", "SP": "SHF", "AO": "SHF", "BC": "SHF", "BR": "SHF",
	// 上期能源 INE
	"SC": "INE", "LU": "INE", "NR": "INE", "EC": "INE",
	// 广期所 GFEX
	"SI": "GFE", "LC": "GFE",
}

// 交易所代码 -> Tushare 后缀
var exchangeSuffix = map[string]string{
	"SHFE":  "SHF",
	"DCE":   "DCE",
	"CZCE":  "ZCE",
	"CFFEX": "CFX",
	"INE":   "INE",
	"GFEX":  "GFE",
}

// ToTsCode 将标准合约代码转换为 Tushare 合约代码
// 例如 I2603 -> I2603.DCE（铁矿石），CU2601 -> CU2601.SHF。
// exchange 可选；未提供时按品种表推断，未匹配时默认 SHF（历史兼容）。
func ToTsCode(contractCode, exchange string) string {
	if contractCode == "" {
		return contractCode
	}
	for _, r := range contractCode {
		if r == '.' {
			return contractCode
		}
	}

	if suffix, ok := exchangeSuffix[exchange]; ok {
		return contractCode + "." + suffix
	}

	symbol := contractCode[:1]
	if m := symbolRe.FindString(contractCode); m != "" {
		symbol = m
	}
	symbol = upper(symbol)

	if suffix, ok := symbolExchangeSuffix[symbol]; ok {
		return contractCode + "." + suffix
	}
	return contractCode + ".SHF"
}

// FromTsCode 将 Tushare 合约代码转换为标准合约代码，如 CU2601.SHF -> CU2601
func FromTsCode(tsCode string) string {
	for i, r := range tsCode {
		if r == '.' {
			return tsCode[:i]
		}
	}
	return tsCode
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
