package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"futures-signal/internal/market"
	"futures-signal/internal/repository"
)

// PredictService 价格预测服务接口
type PredictService interface {
	Predict(ctx context.Context, userID int64, req PredictRequest) (*PredictResponse, error)
}

// predictService 实现
type predictService struct {
	usersRepo repository.UsersRepository
	uploads   UploadService
	engine    market.Engine
	logger    *zap.Logger
}

// NewPredictService 创建 PredictService 实例
func NewPredictService(
	usersRepo repository.UsersRepository,
	uploads UploadService,
	engine market.Engine,
	logger *zap.Logger,
) PredictService {
	return &predictService{
		usersRepo: usersRepo,
		uploads:   uploads,
		engine:    engine,
		logger:    logger,
	}
}

// PredictRequest 预测请求
type PredictRequest struct {
	FileID string `json:"file_id"`
	Days   int    `json:"days"`
}

// PredictMetadata 预测元数据
type PredictMetadata struct {
	FileID   string `json:"file_id"`
	Days     int    `json:"days"`
	RowsUsed int    `json:"rows_used"`
	Fallback bool   `json:"fallback"`
}

// PredictResponse 预测响应
type PredictResponse struct {
	Predictions []float64       `json:"predictions"`
	Confidence  float64         `json:"confidence"`
	Trend       string          `json:"trend"`
	ChangeRate  float64         `json:"change_rate"`
	Metadata    PredictMetadata `json:"metadata"`
}

// limitDetail 预测额度耗尽时的结构化错误详情
type limitDetail struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
}

// Predict 基于上传的行情文件进行价格预测
// 普通用户受每日次数限制并计数，会员与管理员不限次。
func (s *predictService) Predict(ctx context.Context, userID int64, req PredictRequest) (*PredictResponse, error) {
	if req.FileID == "" {
		return nil, errBadRequest("file_id 不能为空")
	}
	days := req.Days
	if days <= 0 {
		days = 1
	}
	if days > 30 {
		return nil, errBadRequest("预测天数不能超过30天")
	}

	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errUnauthorized("用户不存在")
		}
		return nil, err
	}

	if !user.IsMember() {
		remaining := user.DailyPredictionLimit - user.PredictionCount
		if remaining <= 0 {
			return nil, &Error{
				Status:  http.StatusForbidden,
				Message: "今日预测次数已用完",
				Detail: limitDetail{
					Error:     "prediction_limit_exhausted",
					Message:   "今日预测次数已用完，升级会员可不限次使用",
					Remaining: 0,
					Limit:     user.DailyPredictionLimit,
				},
			}
		}
	}

	bars, err := s.uploads.LoadUpload(ctx, req.FileID)
	if err != nil {
		return nil, err
	}

	forecast, err := s.engine.Predict(bars, days)
	if err != nil {
		return nil, errBadRequest(err.Error())
	}

	if !user.IsMember() {
		if err := s.usersRepo.IncrementPredictionCount(ctx, userID); err != nil {
			s.logger.Warn("Increment prediction count failed",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Prediction served",
		zap.Int64("user_id", userID),
		zap.String("file_id", req.FileID),
		zap.Int("days", days),
		zap.String("trend", forecast.Trend),
	)
	return &PredictResponse{
		Predictions: forecast.Predictions,
		Confidence:  forecast.Confidence,
		Trend:       forecast.Trend,
		ChangeRate:  forecast.ChangeRate,
		Metadata: PredictMetadata{
			FileID:   req.FileID,
			Days:     days,
			RowsUsed: len(bars),
			Fallback: forecast.Fallback,
		},
	}, nil
}
