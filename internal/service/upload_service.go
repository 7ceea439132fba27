package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"futures-signal/internal/domain"
	"futures-signal/internal/market"
)

// UploadService 行情文件上传服务
// 上传的文件持久化到本地目录，file_id 供预测接口回读。
type UploadService interface {
	SaveUpload(ctx context.Context, filename string, data []byte) (*UploadResult, error)
	LoadUpload(ctx context.Context, fileID string) ([]domain.Bar, error)
	FormatContract() *FormatContract
}

// uploadService 实现
type uploadService struct {
	dir    string
	logger *zap.Logger
}

// NewUploadService 创建 UploadService 实例，自动创建上传目录
func NewUploadService(dir string, logger *zap.Logger) (UploadService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &uploadService{dir: dir, logger: logger}, nil
}

// UploadResult 上传响应
type UploadResult struct {
	FileID    string       `json:"file_id"`
	Filename  string       `json:"filename"`
	Rows      int          `json:"rows"`
	Columns   []string     `json:"columns"`
	Validated bool         `json:"validated"`
	Data      []domain.Bar `json:"data"`
	Message   string       `json:"message"`
}

// FormatContract 上传格式约定，供前端展示
type FormatContract struct {
	RequiredColumns []string            `json:"required_columns"`
	OptionalColumns []string            `json:"optional_columns"`
	Aliases         map[string][]string `json:"aliases"`
	Extensions      []string            `json:"extensions"`
	MinRows         int                 `json:"min_rows"`
}

// SaveUpload 解析并校验上传文件，成功后落盘
func (s *uploadService) SaveUpload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var bars []domain.Bar
	var err error
	switch ext {
	case ".csv":
		bars, err = market.ParseCSV(data)
	case ".xlsx":
		bars, err = market.ParseXLSX(data)
	default:
		return nil, errBadRequest("仅支持 .csv 和 .xlsx 文件")
	}
	if err != nil {
		return nil, errBadRequest(fmt.Sprintf("文件解析失败: %v", err))
	}
	if err := market.ValidateBars(bars); err != nil {
		return nil, errBadRequest(fmt.Sprintf("数据校验失败: %v", err))
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	fileID := fmt.Sprintf("%s_%s", sanitizeName(base), uuid.NewString()[:8])

	path := filepath.Join(s.dir, fileID+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("persist upload: %w", err)
	}

	s.logger.Info("Market data file uploaded",
		zap.String("file_id", fileID),
		zap.String("filename", filename),
		zap.Int("rows", len(bars)),
	)
	return &UploadResult{
		FileID:    fileID,
		Filename:  filename,
		Rows:      len(bars),
		Columns:   []string{"time", "open", "high", "low", "close", "volume"},
		Validated: true,
		Data:      bars,
		Message:   "上传成功",
	}, nil
}

// LoadUpload 按 file_id 回读上传文件并重新解析
func (s *uploadService) LoadUpload(ctx context.Context, fileID string) ([]domain.Bar, error) {
	if fileID == "" || fileID != sanitizeName(fileID) {
		return nil, errBadRequest("file_id 格式不正确")
	}

	for _, ext := range []string{".csv", ".xlsx"} {
		path := filepath.Join(s.dir, fileID+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read upload: %w", err)
		}
		if ext == ".csv" {
			return market.ParseCSV(data)
		}
		return market.ParseXLSX(data)
	}
	return nil, errNotFound("文件不存在或已过期")
}

// FormatContract 返回静态的格式约定
func (s *uploadService) FormatContract() *FormatContract {
	return &FormatContract{
		RequiredColumns: []string{"time", "open", "high", "low", "close"},
		OptionalColumns: []string{"volume"},
		Aliases: map[string][]string{
			"time":   {"date", "trade_date", "时间", "日期", "交易日期"},
			"open":   {"开盘", "开盘价"},
			"high":   {"最高", "最高价"},
			"low":    {"最低", "最低价"},
			"close":  {"收盘", "收盘价"},
			"volume": {"vol", "成交量", "成交手数"},
		},
		Extensions: []string{".csv", ".xlsx"},
		MinRows:    2,
	}
}

// sanitizeName 过滤文件名中的路径与特殊字符，保留中文
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '-', r > 0x7f:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
