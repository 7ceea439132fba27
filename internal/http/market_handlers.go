package httpapi

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"futures-signal/internal/market"
	"futures-signal/internal/service"
)

// KlineHandler K 线行情接口
type KlineHandler struct {
	kline  market.KlineService
	logger *zap.Logger
}

// NewKlineHandler 创建 KlineHandler
func NewKlineHandler(kline market.KlineService, logger *zap.Logger) *KlineHandler {
	return &KlineHandler{kline: kline, logger: logger}
}

// Get GET /api/v1/kline/{contractCode}?period
func (h *KlineHandler) Get(w http.ResponseWriter, r *http.Request, contractCode string) {
	period := parseInt(r.URL.Query().Get("period"), 365)

	bars, err := h.kline.GetKline(r.Context(), contractCode, period)
	if err != nil {
		switch {
		case errors.Is(err, market.ErrNoData):
			writeDetail(w, http.StatusNotFound, "未找到该合约的行情数据")
		case errors.Is(err, market.ErrUpstreamUnavailable):
			writeDetail(w, http.StatusServiceUnavailable, "行情数据源暂不可用")
		default:
			writeError(w, h.logger, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contract_code": contractCode,
		"data":          bars,
		"count":         len(bars),
		"period":        period,
	})
}

// UploadHandler 行情文件上传接口
type UploadHandler struct {
	uploads  service.UploadService
	maxBytes int64
	logger   *zap.Logger
}

// NewUploadHandler 创建 UploadHandler
func NewUploadHandler(uploads service.UploadService, maxBytes int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxBytes: maxBytes, logger: logger}
}

// Upload POST /api/v1/upload，multipart 字段名 "file"
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "文件过大或表单格式不正确")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "缺少上传文件字段 file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "读取上传文件失败")
		return
	}

	result, err := h.uploads.SaveUpload(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ValidateInfo GET /api/v1/upload/validate，返回静态格式约定
func (h *UploadHandler) ValidateInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.uploads.FormatContract())
}

// PredictHandler 价格预测接口
type PredictHandler struct {
	predict service.PredictService
	logger  *zap.Logger
}

// NewPredictHandler 创建 PredictHandler
func NewPredictHandler(predict service.PredictService, logger *zap.Logger) *PredictHandler {
	return &PredictHandler{predict: predict, logger: logger}
}

// Predict POST /api/v1/predict
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req service.PredictRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	user, _ := CurrentUser(r)
	resp, err := h.predict.Predict(r.Context(), user.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RankingHandler 板块排行接口
type RankingHandler struct {
	provider service.RankingProvider
	logger   *zap.Logger
}

// NewRankingHandler 创建 RankingHandler
func NewRankingHandler(provider service.RankingProvider, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{provider: provider, logger: logger}
}

// Sectors GET /api/v1/rankings/sectors
func (h *RankingHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.provider.SectorRankings(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rankings": rankings})
}

// PriceHandler 现价手动刷新接口
type PriceHandler struct {
	prices service.PriceService
	logger *zap.Logger
}

// NewPriceHandler 创建 PriceHandler
func NewPriceHandler(prices service.PriceService, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, logger: logger}
}

// UpdateAll POST /api/v1/price-update/update-all，管理员手动刷新全部在用合约现价
func (h *PriceHandler) UpdateAll(w http.ResponseWriter, r *http.Request) {
	updated, err := h.prices.RefreshPrices(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "价格更新完成",
		"updated": updated,
	})
}

// UpdateByContract POST /api/v1/price-update/update-by-contract {contract_code}
func (h *PriceHandler) UpdateByContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContractCode string `json:"contract_code"`
	}
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}
	if req.ContractCode == "" {
		writeDetail(w, http.StatusBadRequest, "合约代码不能为空")
		return
	}
	price, posts, err := h.prices.RefreshContract(r.Context(), req.ContractCode)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "价格更新完成",
		"contract_code": req.ContractCode,
		"price":         price,
		"posts_updated": posts,
	})
}

// SyncHandler 合约同步接口
type SyncHandler struct {
	contracts service.ContractService
	logger    *zap.Logger
}

// NewSyncHandler 创建 SyncHandler
func NewSyncHandler(contracts service.ContractService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{contracts: contracts, logger: logger}
}

// Run POST /api/v1/futures-sync/run，管理员手动触发合约同步
func (h *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	synced, err := h.contracts.SyncContracts(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "同步完成",
		"synced":  synced,
	})
}
