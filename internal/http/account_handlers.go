package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"futures-signal/internal/service"
)

// AccountHandler 个人清单接口：收藏与浏览历史
type AccountHandler struct {
	account service.AccountService
	logger  *zap.Logger
}

// NewAccountHandler 创建 AccountHandler
func NewAccountHandler(account service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{account: account, logger: logger}
}

// Collections GET /api/v1/collections
func (h *AccountHandler) Collections(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	q := r.URL.Query()

	resp, err := h.account.ListCollections(r.Context(), user.UserID,
		parseInt(q.Get("page"), 1), parseInt(q.Get("page_size"), 10))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// BrowseHistory GET /api/v1/browse-history
func (h *AccountHandler) BrowseHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	q := r.URL.Query()

	resp, err := h.account.ListBrowseHistory(r.Context(), user.UserID,
		parseInt(q.Get("page"), 1), parseInt(q.Get("page_size"), 10))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearBrowseHistory DELETE /api/v1/browse-history
func (h *AccountHandler) ClearBrowseHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	if err := h.account.ClearBrowseHistory(r.Context(), user.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "浏览历史已清空"})
}
