package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"futures-signal/internal/domain"
	"futures-signal/internal/repository"
)

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, userID int64) (*UserProfile, error)
	PredictionQuota(ctx context.Context, userID int64) (*PredictionQuota, error)
}

// authService 实现
type authService struct {
	usersRepo    repository.UsersRepository
	sessionsRepo repository.SessionsRepository
	tokens       *TokenManager
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	usersRepo repository.UsersRepository,
	sessionsRepo repository.SessionsRepository,
	tokens *TokenManager,
	logger *zap.Logger,
) AuthService {
	return &authService{
		usersRepo:    usersRepo,
		sessionsRepo: sessionsRepo,
		tokens:       tokens,
		validate:     validator.New(),
		logger:       logger,
	}
}

var phonePattern = regexp.MustCompile(`^\d{11}$`)

// RegisterRequest 注册请求
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
	Email       string `json:"email" validate:"omitempty,email,max=100"`
	Nickname    string `json:"nickname" validate:"omitempty,max=50"`
	IPAddress   string `json:"-"`
	UserAgent   string `json:"-"`
}

// LoginRequest 登录请求，手机号与邮箱二选一
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Password    string `json:"password" validate:"required"`
	IPAddress   string `json:"-"`
	UserAgent   string `json:"-"`
}

// UserProfile 用户信息
type UserProfile struct {
	UserID               int64      `json:"user_id"`
	PhoneNumber          string     `json:"phone_number"`
	Email                *string    `json:"email"`
	Nickname             string     `json:"nickname"`
	UserRole             int        `json:"user_role"`
	AvatarURL            *string    `json:"avatar_url"`
	PredictionCount      int        `json:"prediction_count"`
	DailyPredictionLimit int        `json:"daily_prediction_limit"`
	MemberExpireTime     *time.Time `json:"member_expire_time"`
	CreatedAt            time.Time  `json:"created_at"`
	IsActive             bool       `json:"is_active"`
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	Message   string       `json:"message"`
	User      *UserProfile `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int64        `json:"expires_in"`
}

// PredictionQuota 预测额度，会员不限次时 remaining/limit 为 -1
type PredictionQuota struct {
	Allowed      bool `json:"allowed"`
	Remaining    int  `json:"remaining"`
	Limit        int  `json:"limit"`
	IsMember     bool `json:"is_member"`
	CurrentCount int  `json:"current_count"`
}

func profileOf(user *domain.User) *UserProfile {
	profile := &UserProfile{
		UserID:               user.UserID,
		PhoneNumber:          user.PhoneNumber,
		Nickname:             user.Nickname.String,
		UserRole:             user.UserRole,
		PredictionCount:      user.PredictionCount,
		DailyPredictionLimit: user.DailyPredictionLimit,
		CreatedAt:            user.CreatedAt,
		IsActive:             user.IsActive,
	}
	if user.Email.Valid {
		profile.Email = &user.Email.String
	}
	if user.AvatarURL.Valid {
		profile.AvatarURL = &user.AvatarURL.String
	}
	if user.MemberExpireTime.Valid {
		profile.MemberExpireTime = &user.MemberExpireTime.Time
	}
	return profile
}

// Register 用户注册，成功后直接签发令牌
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Email = strings.TrimSpace(req.Email)
	req.Nickname = strings.TrimSpace(req.Nickname)

	if err := s.validate.Struct(req); err != nil {
		return nil, errBadRequest("注册信息格式不正确")
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		return nil, errBadRequest("手机号必须为11位数字")
	}

	if _, err := s.usersRepo.GetUserByPhone(ctx, req.PhoneNumber); err == nil {
		return nil, errBadRequest("该手机号已被注册")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if req.Email != "" {
		if _, err := s.usersRepo.GetUserByEmail(ctx, req.Email); err == nil {
			return nil, errBadRequest("该邮箱已被注册")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = req.PhoneNumber
	}
	user := &domain.User{
		PhoneNumber:          req.PhoneNumber,
		PasswordHash:         string(hash),
		UserRole:             domain.RoleRegular,
		Nickname:             sql.NullString{String: nickname, Valid: true},
		DailyPredictionLimit: 5,
		IsActive:             true,
	}
	if req.Email != "" {
		user.Email = sql.NullString{String: req.Email, Valid: true}
	}

	userID, err := s.usersRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	created, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", userID),
		zap.String("phone_number", req.PhoneNumber),
	)
	return s.issueToken(ctx, created, req.IPAddress, req.UserAgent, "注册成功")
}

// Login 用户登录，手机号或邮箱二选一
func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Email = strings.TrimSpace(req.Email)

	if err := s.validate.Struct(req); err != nil {
		return nil, errBadRequest("请提供登录密码")
	}
	if (req.PhoneNumber == "") == (req.Email == "") {
		return nil, errBadRequest("请提供手机号或邮箱（二选一）")
	}

	var user *domain.User
	var err error
	if req.PhoneNumber != "" {
		user, err = s.usersRepo.GetUserByPhone(ctx, req.PhoneNumber)
	} else {
		user, err = s.usersRepo.GetUserByEmail(ctx, req.Email)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errUnauthorized("账号或密码错误")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("User login failed: bad credentials",
			zap.Int64("user_id", user.UserID),
			zap.String("ip_address", req.IPAddress),
		)
		return nil, errUnauthorized("账号或密码错误")
	}
	if !user.IsActive {
		return nil, errUnauthorized("账号已被禁用")
	}

	if err := s.usersRepo.UpdateLastLogin(ctx, user.UserID); err != nil {
		s.logger.Warn("Update last login failed", zap.Int64("user_id", user.UserID), zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.Int64("user_id", user.UserID),
		zap.String("ip_address", req.IPAddress),
	)
	return s.issueToken(ctx, user, req.IPAddress, req.UserAgent, "登录成功")
}

// issueToken 签发令牌并落库会话
func (s *authService) issueToken(ctx context.Context, user *domain.User, ip, userAgent, message string) (*AuthResponse, error) {
	token, expireAt, err := s.tokens.Generate(user.UserID, user.UserRole)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		UserID:    user.UserID,
		TokenHash: HashToken(token),
		ExpireAt:  expireAt,
	}
	if userAgent != "" {
		session.UserAgent = sql.NullString{String: userAgent, Valid: true}
	}
	if ip != "" {
		session.IPAddress = sql.NullString{String: ip, Valid: true}
	}
	if _, err := s.sessionsRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &AuthResponse{
		Message:   message,
		User:      profileOf(user),
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int64(time.Until(expireAt).Seconds()),
	}, nil
}

// Logout 登出，按令牌哈希撤销会话；会话不存在也返回成功
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionsRepo.DeleteSessionByTokenHash(ctx, HashToken(token)); err != nil {
		s.logger.Warn("Delete session failed", zap.Error(err))
	}
	return nil
}

// CurrentUser 获取当前用户信息
func (s *authService) CurrentUser(ctx context.Context, userID int64) (*UserProfile, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("用户不存在")
		}
		return nil, err
	}
	return profileOf(user), nil
}

// PredictionQuota 查询当日预测额度
func (s *authService) PredictionQuota(ctx context.Context, userID int64) (*PredictionQuota, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("用户不存在")
		}
		return nil, err
	}

	if user.IsMember() {
		return &PredictionQuota{
			Allowed:      true,
			Remaining:    -1,
			Limit:        -1,
			IsMember:     true,
			CurrentCount: user.PredictionCount,
		}, nil
	}

	remaining := user.DailyPredictionLimit - user.PredictionCount
	if remaining < 0 {
		remaining = 0
	}
	return &PredictionQuota{
		Allowed:      remaining > 0,
		Remaining:    remaining,
		Limit:        user.DailyPredictionLimit,
		IsMember:     false,
		CurrentCount: user.PredictionCount,
	}, nil
}
