package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"futures-signal/internal/domain"
	"futures-signal/internal/market"
	"futures-signal/internal/repository"
	"futures-signal/internal/service"
	"futures-signal/internal/store"
	"futures-signal/internal/tushare"
)

// ---- 内存版Repository，路由测试用 ----

type memUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{nextID: 1, users: map[int64]*domain.User{}}
}

var _ repository.UsersRepository = (*memUsersRepo)(nil)

func (m *memUsersRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memUsersRepo) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PhoneNumber == phone {
			c := *u
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsersRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email.Valid && u.Email.String == email {
			c := *u
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUsersRepo) ListUsers(ctx context.Context, f repository.UserFilters, page, size int) ([]*domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.users {
		c := *u
		out = append(out, &c)
	}
	return out, len(out), nil
}

func (m *memUsersRepo) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	c := *u
	c.UserID = id
	c.CreatedAt = time.Now()
	m.users[id] = &c
	return id, nil
}

func (m *memUsersRepo) UpdateUser(ctx context.Context, id int64, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	c := *u
	c.UserID = id
	m.users[id] = &c
	return nil
}

func (m *memUsersRepo) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *memUsersRepo) UpdateLastLogin(ctx context.Context, id int64) error { return nil }

func (m *memUsersRepo) IncrementPredictionCount(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PredictionCount++
	}
	return nil
}

func (m *memUsersRepo) ResetPredictionCounts(ctx context.Context) (int64, error) { return 0, nil }

type memSessionsRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemSessionsRepo() *memSessionsRepo {
	return &memSessionsRepo{sessions: map[string]*domain.Session{}}
}

var _ repository.SessionsRepository = (*memSessionsRepo)(nil)

func (m *memSessionsRepo) CreateSession(ctx context.Context, s *domain.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	c.SessionID = s.TokenHash[:16]
	m.sessions[s.TokenHash] = &c
	return c.SessionID, nil
}

func (m *memSessionsRepo) GetSessionByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[hash]; ok && s.ExpireAt.After(time.Now()) {
		c := *s
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memSessionsRepo) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, hash)
	return nil
}

func (m *memSessionsRepo) DeleteSessionsByUser(ctx context.Context, id int64) error { return nil }
func (m *memSessionsRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) { return 0, nil }

type memPostsRepo struct{}

var _ repository.PostsRepository = (*memPostsRepo)(nil)

func (memPostsRepo) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	return nil, sql.ErrNoRows
}
func (memPostsRepo) ListPosts(ctx context.Context, f repository.PostFilters, page, size int) ([]*domain.Post, int, error) {
	return nil, 0, nil
}
func (memPostsRepo) CreatePost(ctx context.Context, p *domain.Post) (int64, error) { return 1, nil }
func (memPostsRepo) UpdatePost(ctx context.Context, id int64, p *domain.Post) error {
	return sql.ErrNoRows
}
func (memPostsRepo) SoftDeletePost(ctx context.Context, id int64) error { return sql.ErrNoRows }
func (memPostsRepo) AdjustCollectCount(ctx context.Context, id int64, d int) error {
	return nil
}
func (memPostsRepo) UpdateCurrentPrice(ctx context.Context, code string, price float64) (int64, error) {
	return 0, nil
}
func (memPostsRepo) SoftDeleteByContractCodes(ctx context.Context, codes []string) (int64, error) {
	return 0, nil
}
func (memPostsRepo) ListActiveContractCodes(ctx context.Context) ([]string, error) {
	return nil, nil
}

type memCollectionsRepo struct{}

var _ repository.CollectionsRepository = (*memCollectionsRepo)(nil)

func (memCollectionsRepo) IsCollected(ctx context.Context, u, p int64) (bool, error) {
	return false, nil
}
func (memCollectionsRepo) AddCollection(ctx context.Context, u, p int64) error    { return nil }
func (memCollectionsRepo) RemoveCollection(ctx context.Context, u, p int64) error { return nil }
func (memCollectionsRepo) ListCollectedPosts(ctx context.Context, u int64, page, size int) ([]*domain.Post, int, error) {
	return nil, 0, nil
}

type memHistoryRepo struct{}

var _ repository.BrowseHistoryRepository = (*memHistoryRepo)(nil)

func (memHistoryRepo) RecordBrowse(ctx context.Context, u, p int64) error { return nil }
func (memHistoryRepo) ListBrowsedPosts(ctx context.Context, u int64, page, size int) ([]*domain.Post, int, error) {
	return nil, 0, nil
}
func (memHistoryRepo) ClearHistory(ctx context.Context, u int64) error { return nil }

// ---- 测试服务器 ----

func newTestServer(t *testing.T) (*Router, *memUsersRepo) {
	logger := zap.NewNop()
	users := newMemUsersRepo()
	sessions := newMemSessionsRepo()
	posts := memPostsRepo{}
	collections := memCollectionsRepo{}
	history := memHistoryRepo{}

	tokens := service.NewTokenManager("test-secret", 24)
	authSvc := service.NewAuthService(users, sessions, tokens, logger)
	postSvc := service.NewPostService(posts, collections, history, logger)
	accountSvc := service.NewAccountService(collections, history, logger)
	adminSvc := service.NewUserAdminService(users, sessions, logger)
	uploadSvc, err := service.NewUploadService(t.TempDir(), logger)
	require.NoError(t, err)
	predictSvc := service.NewPredictService(users, uploadSvc, market.NewFallbackEngine(1), logger)

	tuClient := tushare.NewClient("http://api.tushare.pro", "", logger)
	kv := store.NewMemoryKV()
	klineSvc := market.NewKlineService(tuClient, kv, logger)
	priceSvc := service.NewPriceService(posts, tuClient, kv, logger)

	router := NewRouter(logger)
	router.Register(&Handlers{
		Auth:      NewAuthHandler(authSvc, logger),
		Posts:     NewPostHandler(postSvc, logger),
		Drafts:    NewDraftHandler(nil, logger),
		Account:   NewAccountHandler(accountSvc, logger),
		AdminUser: NewAdminUserHandler(adminSvc, logger),
		Kline:     NewKlineHandler(klineSvc, logger),
		Upload:    NewUploadHandler(uploadSvc, 10<<20, logger),
		Predict:   NewPredictHandler(predictSvc, logger),
		Rankings:  NewRankingHandler(service.NewUnavailableRankingProvider(), logger),
		Sync:      NewSyncHandler(nil, logger),
		Price:     NewPriceHandler(priceSvc, logger),
	}, NewAuthMiddleware(tokens, sessions, users, logger), "futures-signal")

	return router, users
}

func doJSON(t *testing.T, router *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, router *Router, phone string) string {
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"phone_number": phone,
		"password":     "secret6",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestAuthLifecycle(t *testing.T) {
	router, _ := newTestServer(t)
	token := registerUser(t, router, "13800001111")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "13800001111")

	// 未带令牌 401 且响应体为 {"detail": ...}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"detail"`)

	// 登出后令牌失效
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostsAuthorIDParam(t *testing.T) {
	router, _ := newTestServer(t)

	// 匿名可浏览列表
	rec := doJSON(t, router, http.MethodGet, "/api/v1/posts", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// author_id=current 未登录时 401
	rec = doJSON(t, router, http.MethodGet, "/api/v1/posts?author_id=current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 非数字 author_id 400
	rec = doJSON(t, router, http.MethodGet, "/api/v1/posts?author_id=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := registerUser(t, router, "13800002222")
	rec = doJSON(t, router, http.MethodGet, "/api/v1/posts?author_id=current", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostCreateRequiresAdmin(t *testing.T) {
	router, _ := newTestServer(t)
	token := registerUser(t, router, "13800003333")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/posts", token, map[string]any{
		"title":         "test",
		"contract_code": "CU2601",
		"stop_loss":     100.0,
		"content":       "test",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminUsersRoleGate(t *testing.T) {
	router, users := newTestServer(t)
	token := registerUser(t, router, "13800004444")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 提升为管理员后可访问
	user, err := users.GetUserByPhone(context.Background(), "13800004444")
	require.NoError(t, err)
	user.UserRole = domain.RoleAdmin
	require.NoError(t, users.UpdateUser(context.Background(), user.UserID, user))

	rec = doJSON(t, router, http.MethodGet, "/api/v1/admin/users", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSelfProtection(t *testing.T) {
	router, users := newTestServer(t)
	token := registerUser(t, router, "13800005555")

	admin, err := users.GetUserByPhone(context.Background(), "13800005555")
	require.NoError(t, err)
	admin.UserRole = domain.RoleAdmin
	require.NoError(t, users.UpdateUser(context.Background(), admin.UserID, admin))

	// 不能降低自己的角色
	rec := doJSON(t, router, http.MethodPut,
		"/api/v1/admin/users/1", token, map[string]any{"user_role": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 不能删除自己
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/admin/users/1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKlineUnavailableWithoutToken(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/kline/CU2601", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"detail"`)
}

func TestUploadRequiresMember(t *testing.T) {
	router, _ := newTestServer(t)
	token := registerUser(t, router, "13800006666")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/upload", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRankingsNotYetAvailable(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/rankings/sectors", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not yet available")
}

func TestPriceUpdateRequiresAdmin(t *testing.T) {
	router, users := newTestServer(t)
	token := registerUser(t, router, "13800007777")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/price-update/update-all", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := users.GetUserByPhone(context.Background(), "13800007777")
	require.NoError(t, err)
	admin.UserRole = domain.RoleAdmin
	require.NoError(t, users.UpdateUser(context.Background(), admin.UserID, admin))

	// 数据源未配置时全量刷新直接跳过，仍返回 200
	rec = doJSON(t, router, http.MethodPost, "/api/v1/price-update/update-all", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":0`)

	// 单合约刷新依赖数据源，未配置时 503
	rec = doJSON(t, router, http.MethodPost, "/api/v1/price-update/update-by-contract", token,
		map[string]string{"contract_code": "CU2601"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/price-update/update-by-contract", token,
		map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadValidateIsPublic(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/upload/validate", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "required_columns")
}
