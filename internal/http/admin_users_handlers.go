package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"futures-signal/internal/service"
)

// AdminUserHandler 管理员用户管理接口，路由层限定 role==3
type AdminUserHandler struct {
	users  service.UserAdminService
	logger *zap.Logger
}

// NewAdminUserHandler 创建 AdminUserHandler
func NewAdminUserHandler(users service.UserAdminService, logger *zap.Logger) *AdminUserHandler {
	return &AdminUserHandler{users: users, logger: logger}
}

// List GET /api/v1/admin/users
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.users.ListUsers(r.Context(), service.ListUsersRequest{
		Page:     parseInt(q.Get("page"), 1),
		PageSize: parseInt(q.Get("page_size"), 10),
		Keyword:  q.Get("keyword"),
		Role:     parseInt(q.Get("role"), 0),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create POST /api/v1/admin/users
func (h *AdminUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.AdminCreateUserRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	profile, err := h.users.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// Update PUT /api/v1/admin/users/{id}
func (h *AdminUserHandler) Update(w http.ResponseWriter, r *http.Request, userID int64) {
	var req service.AdminUpdateUserRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	operator, _ := CurrentUser(r)
	profile, err := h.users.UpdateUser(r.Context(), operator.UserID, userID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Delete DELETE /api/v1/admin/users/{id}
func (h *AdminUserHandler) Delete(w http.ResponseWriter, r *http.Request, userID int64) {
	operator, _ := CurrentUser(r)
	if err := h.users.DeleteUser(r.Context(), operator.UserID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "删除成功"})
}
