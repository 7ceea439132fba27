package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"futures-signal/internal/service"
)

// PostHandler 信号帖子接口
type PostHandler struct {
	posts  service.PostService
	logger *zap.Logger
}

// NewPostHandler 创建 PostHandler
func NewPostHandler(posts service.PostService, logger *zap.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// List GET /api/v1/posts
// author_id 支持数字 ID 或字面量 "current"（需登录）。
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.ListPostsRequest{
		Page:     parseInt(q.Get("page"), 1),
		PageSize: parseInt(q.Get("page_size"), 10),
		SectorID: int64(parseInt(q.Get("sector_id"), 0)),
		Search:   strings.TrimSpace(q.Get("search")),
	}

	if authorParam := q.Get("author_id"); authorParam != "" {
		if authorParam == "current" {
			user, ok := CurrentUser(r)
			if !ok {
				writeDetail(w, http.StatusUnauthorized, "查看自己的帖子需要登录")
				return
			}
			req.AuthorID = user.UserID
		} else {
			authorID, err := parseInt64(authorParam)
			if err != nil {
				writeDetail(w, http.StatusBadRequest, "author_id 必须为数字或 current")
				return
			}
			req.AuthorID = authorID
		}
	}

	resp, err := h.posts.ListPosts(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get GET /api/v1/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request, postID int64) {
	user, _ := CurrentUser(r)
	item, err := h.posts.GetPost(r.Context(), postID, user.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create POST /api/v1/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.PostPayload
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	user, _ := CurrentUser(r)
	item, err := h.posts.CreatePost(r.Context(), user.UserID, user.UserRole, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Update PUT /api/v1/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request, postID int64) {
	var req service.PostUpdate
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "请求体格式不正确")
		return
	}

	user, _ := CurrentUser(r)
	item, err := h.posts.UpdatePost(r.Context(), user.UserID, user.UserRole, postID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete DELETE /api/v1/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request, postID int64) {
	user, _ := CurrentUser(r)
	if err := h.posts.DeletePost(r.Context(), user.UserID, user.UserRole, postID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "删除成功"})
}

// Collect POST /api/v1/posts/{id}/collect，收藏/取消收藏切换
func (h *PostHandler) Collect(w http.ResponseWriter, r *http.Request, postID int64) {
	user, _ := CurrentUser(r)
	collected, err := h.posts.ToggleCollect(r.Context(), user.UserID, postID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	message := "已取消收藏"
	if collected {
		message = "收藏成功"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   message,
		"collected": collected,
	})
}
