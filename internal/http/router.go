package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"futures-signal/internal/domain"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handlers 全部接口处理器
type Handlers struct {
	Auth      *AuthHandler
	Posts     *PostHandler
	Drafts    *DraftHandler
	Account   *AccountHandler
	AdminUser *AdminUserHandler
	Kline     *KlineHandler
	Upload    *UploadHandler
	Predict   *PredictHandler
	Rankings  *RankingHandler
	Sync      *SyncHandler
	Price     *PriceHandler
}

// pathID 提取 prefix 之后的单段路径参数，非法时返回 false
func pathID(path, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := parseInt64(rest)
	if err != nil {
		return 0, false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeDetail(w, http.StatusMethodNotAllowed, "不支持的请求方法")
}

// Register 注册全部路由
func (r *Router) Register(h *Handlers, auth *AuthMiddleware, serviceName string) {
	// 健康检查
	r.Handle("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	// 认证
	r.Handle("/api/v1/auth/register", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Auth.Register(w, req)
	})
	r.Handle("/api/v1/auth/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Auth.Login(w, req)
	})
	r.Handle("/api/v1/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		auth.Require(h.Auth.Logout)(w, req)
	})
	r.Handle("/api/v1/auth/me", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		auth.Require(h.Auth.Me)(w, req)
	})
	r.Handle("/api/v1/auth/prediction-limit", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		auth.Require(h.Auth.PredictionLimit)(w, req)
	})

	// 帖子
	r.Handle("/api/v1/posts", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			auth.Optional(h.Posts.List)(w, req)
		case http.MethodPost:
			auth.Require(h.Posts.Create)(w, req)
		default:
			methodNotAllowed(w)
		}
	})
	r.Handle("/api/v1/posts/", func(w http.ResponseWriter, req *http.Request) {
		const prefix = "/api/v1/posts/"

		// /posts/{id}/collect
		if strings.HasSuffix(req.URL.Path, "/collect") {
			id, ok := pathID(strings.TrimSuffix(req.URL.Path, "/collect"), prefix)
			if !ok {
				writeDetail(w, http.StatusNotFound, "帖子不存在")
				return
			}
			if req.Method != http.MethodPost {
				methodNotAllowed(w)
				return
			}
			auth.Require(func(w http.ResponseWriter, req *http.Request) {
				h.Posts.Collect(w, req, id)
			})(w, req)
			return
		}

		id, ok := pathID(req.URL.Path, prefix)
		if !ok {
			writeDetail(w, http.StatusNotFound, "帖子不存在")
			return
		}
		switch req.Method {
		case http.MethodGet:
			auth.Require(func(w http.ResponseWriter, req *http.Request) {
				h.Posts.Get(w, req, id)
			})(w, req)
		case http.MethodPut:
			auth.Require(func(w http.ResponseWriter, req *http.Request) {
				h.Posts.Update(w, req, id)
			})(w, req)
		case http.MethodDelete:
			auth.Require(func(w http.ResponseWriter, req *http.Request) {
				h.Posts.Delete(w, req, id)
			})(w, req)
		default:
			methodNotAllowed(w)
		}
	})

	// 草稿
	r.Handle("/api/v1/drafts", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			auth.Require(h.Drafts.List)(w, req)
		case http.MethodPost:
			auth.Require(h.Drafts.Create)(w, req)
		default:
			methodNotAllowed(w)
		}
	})
	r.Handle("/api/v1/drafts/", func(w http.ResponseWriter, req *http.Request) {
		id, ok := pathID(req.URL.Path, "/api/v1/drafts/")
		if !ok {
			writeDetail(w, http.StatusNotFound, "草稿不存在")
			return
		}
		switch req.Method {
		case http.MethodGet:
			auth.Require(func(w http.ResponseWriter, req *http.Request) {
				h.Drafts.Get(w, req, id)
			})(w, req)
		case http.MethodPut:
			auth.Require(func(w http.ResponseWriter, req *http.Request) {
				h.Drafts.Update(w, req, id)
			})(w, req)
		case http.MethodDelete:
			auth.Require(func(w http.ResponseWriter, req *http.Request) {
				h.Drafts.Delete(w, req, id)
			})(w, req)
		default:
			methodNotAllowed(w)
		}
	})

	// 收藏与浏览历史
	r.Handle("/api/v1/collections", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		auth.Require(h.Account.Collections)(w, req)
	})
	r.Handle("/api/v1/browse-history", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			auth.Require(h.Account.BrowseHistory)(w, req)
		case http.MethodDelete:
			auth.Require(h.Account.ClearBrowseHistory)(w, req)
		default:
			methodNotAllowed(w)
		}
	})

	// 管理员用户管理
	r.Handle("/api/v1/admin/users", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			auth.RequireRole(domain.RoleAdmin, h.AdminUser.List)(w, req)
		case http.MethodPost:
			auth.RequireRole(domain.RoleAdmin, h.AdminUser.Create)(w, req)
		default:
			methodNotAllowed(w)
		}
	})
	r.Handle("/api/v1/admin/users/", func(w http.ResponseWriter, req *http.Request) {
		id, ok := pathID(req.URL.Path, "/api/v1/admin/users/")
		if !ok {
			writeDetail(w, http.StatusNotFound, "用户不存在")
			return
		}
		switch req.Method {
		case http.MethodPut:
			auth.RequireRole(domain.RoleAdmin, func(w http.ResponseWriter, req *http.Request) {
				h.AdminUser.Update(w, req, id)
			})(w, req)
		case http.MethodDelete:
			auth.RequireRole(domain.RoleAdmin, func(w http.ResponseWriter, req *http.Request) {
				h.AdminUser.Delete(w, req, id)
			})(w, req)
		default:
			methodNotAllowed(w)
		}
	})

	// K 线
	r.Handle("/api/v1/kline/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		code := strings.TrimPrefix(req.URL.Path, "/api/v1/kline/")
		if code == "" || strings.Contains(code, "/") {
			writeDetail(w, http.StatusNotFound, "合约代码不正确")
			return
		}
		h.Kline.Get(w, req, code)
	})

	// 上传与预测
	r.Handle("/api/v1/upload", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		auth.RequireRole(domain.RoleMember, h.Upload.Upload)(w, req)
	})
	r.Handle("/api/v1/upload/validate", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Upload.ValidateInfo(w, req)
	})
	r.Handle("/api/v1/predict", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		auth.Require(h.Predict.Predict)(w, req)
	})

	// 排行与合约同步
	r.Handle("/api/v1/rankings/sectors", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.Rankings.Sectors(w, req)
	})
	r.Handle("/api/v1/futures-sync/run", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		auth.RequireRole(domain.RoleAdmin, h.Sync.Run)(w, req)
	})
	r.Handle("/api/v1/price-update/update-all", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		auth.RequireRole(domain.RoleAdmin, h.Price.UpdateAll)(w, req)
	})
	r.Handle("/api/v1/price-update/update-by-contract", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		auth.RequireRole(domain.RoleAdmin, h.Price.UpdateByContract)(w, req)
	})
}
