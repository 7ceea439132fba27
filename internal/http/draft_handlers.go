package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"futures-signal/internal/service"
)

// DraftHandler 草稿接口，全部需要登录
type DraftHandler struct {
	drafts service.DraftService
	logger *zap.Logger
}

// NewDraftHandler 创建 DraftHandler
func NewDraftHandler(drafts service.DraftService, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{drafts: drafts, logger: logger}
}

// List GET /api/v1/drafts
func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r)
	q := r.URL.Query()

	resp, err := h.drafts.ListDrafts(r.Context(), user.UserID,
		parseInt(q.Get("page"), 1), parseInt(q.Get("page_size"), 10))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get GET /api/v1/drafts/{id}
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request, draftID int64) {
	user, _ := CurrentUser(r)
	item, err := h.drafts.GetDraft(r.Context(), user.UserID, draftID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create POST /api/v1/drafts
func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.DraftPayload
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	user, _ := CurrentUser(r)
	item, err := h.drafts.SaveDraft(r.Context(), user.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update PUT /api/v1/drafts/{id}
func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request, draftID int64) {
	var req service.DraftPayload
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	user, _ := CurrentUser(r)
	item, err := h.drafts.UpdateDraft(r.Context(), user.UserID, draftID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete DELETE /api/v1/drafts/{id}
func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request, draftID int64) {
	user, _ := CurrentUser(r)
	if err := h.drafts.DeleteDraft(r.Context(), user.UserID, draftID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "删除成功"})
}
