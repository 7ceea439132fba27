package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"futures-signal/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail 错误响应统一为 {"detail": ...}
func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

// writeError 将服务层错误映射为 HTTP 响应，未识别的错误按 500 处理
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if svcErr := service.AsError(err); svcErr != nil {
		if svcErr.Detail != nil {
			writeDetail(w, svcErr.Status, svcErr.Detail)
			return
		}
		writeDetail(w, svcErr.Status, svcErr.Message)
		return
	}
	logger.Error("Internal server error", zap.Error(err))
	writeDetail(w, http.StatusInternalServerError, "服务器内部错误")
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
