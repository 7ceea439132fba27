package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"futures-signal/internal/domain"
	"futures-signal/internal/repository"
	"futures-signal/internal/service"
)

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeyToken
)

// CurrentUser 从请求上下文取当前用户，未认证时 ok 为 false
func CurrentUser(r *http.Request) (*domain.User, bool) {
	user, ok := r.Context().Value(ctxKeyUser).(*domain.User)
	return user, ok
}

// CurrentToken 从请求上下文取原始令牌
func CurrentToken(r *http.Request) string {
	token, _ := r.Context().Value(ctxKeyToken).(string)
	return token
}

// AuthMiddleware Bearer 令牌认证
// 校验三层：JWT 签名与有效期、user_sessions 会话未被撤销、用户存在且激活。
type AuthMiddleware struct {
	tokens   *service.TokenManager
	sessions repository.SessionsRepository
	users    repository.UsersRepository
	logger   *zap.Logger
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(
	tokens *service.TokenManager,
	sessions repository.SessionsRepository,
	users repository.UsersRepository,
	logger *zap.Logger,
) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate 解析并校验令牌，返回用户；失败返回业务错误
func (m *AuthMiddleware) authenticate(r *http.Request) (*domain.User, string, *service.Error) {
	token := bearerToken(r)
	if token == "" {
		return nil, "", service.NewError(http.StatusUnauthorized, "未登录或登录已过期")
	}

	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil, "", service.NewError(http.StatusUnauthorized, "未登录或登录已过期")
	}
	if _, err := m.sessions.GetSessionByTokenHash(r.Context(), service.HashToken(token)); err != nil {
		return nil, "", service.NewError(http.StatusUnauthorized, "未登录或登录已过期")
	}
	user, err := m.users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		return nil, "", service.NewError(http.StatusUnauthorized, "未登录或登录已过期")
	}
	if !user.IsActive {
		return nil, "", service.NewError(http.StatusForbidden, "账号已被禁用")
	}
	return user, token, nil
}

func withUser(r *http.Request, user *domain.User, token string) *http.Request {
	ctx := context.WithValue(r.Context(), ctxKeyUser, user)
	ctx = context.WithValue(ctx, ctxKeyToken, token)
	return r.WithContext(ctx)
}

// Require 强制认证
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, token, svcErr := m.authenticate(r)
		if svcErr != nil {
			writeDetail(w, svcErr.Status, svcErr.Message)
			return
		}
		next(w, withUser(r, user, token))
	}
}

// RequireRole 强制认证且角色不低于 minRole
func (m *AuthMiddleware) RequireRole(minRole int, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, token, svcErr := m.authenticate(r)
		if svcErr != nil {
			writeDetail(w, svcErr.Status, svcErr.Message)
			return
		}
		if user.UserRole < minRole {
			writeDetail(w, http.StatusForbidden, "权限不足")
			return
		}
		next(w, withUser(r, user, token))
	}
}

// Optional 可选认证，令牌无效时按匿名继续
func (m *AuthMiddleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user, token, svcErr := m.authenticate(r); svcErr == nil {
			r = withUser(r, user, token)
		}
		next(w, r)
	}
}

// CORS 跨域中间件，origins 含 "*" 或为空时放行全部来源
func CORS(origins []string, next http.Handler) http.Handler {
	allowAny := false
	allowed := map[string]bool{}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			allowAny = true
			continue
		}
		allowed[o] = true
	}
	if len(allowed) == 0 {
		allowAny = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAny || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP 提取客户端 IP，优先 X-Forwarded-For
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
