package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"futures-signal/internal/domain"
	"futures-signal/internal/repository"
)

// UserAdminService 管理员用户管理服务接口
// 调用方必须是管理员（Handler 层校验角色），本层负责自我保护规则：
// 不能降低自己的角色、不能禁用自己、不能删除自己。
type UserAdminService interface {
	ListUsers(ctx context.Context, req ListUsersRequest) (*UserListResponse, error)
	CreateUser(ctx context.Context, req AdminCreateUserRequest) (*UserProfile, error)
	UpdateUser(ctx context.Context, operatorID, userID int64, req AdminUpdateUserRequest) (*UserProfile, error)
	DeleteUser(ctx context.Context, operatorID, userID int64) error
}

// userAdminService 实现
type userAdminService struct {
	usersRepo    repository.UsersRepository
	sessionsRepo repository.SessionsRepository
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewUserAdminService 创建 UserAdminService 实例
func NewUserAdminService(
	usersRepo repository.UsersRepository,
	sessionsRepo repository.SessionsRepository,
	logger *zap.Logger,
) UserAdminService {
	return &userAdminService{
		usersRepo:    usersRepo,
		sessionsRepo: sessionsRepo,
		validate:     validator.New(),
		logger:       logger,
	}
}

// ListUsersRequest 用户列表查询
type ListUsersRequest struct {
	Page     int
	PageSize int
	Keyword  string
	Role     int
}

// UserListResponse 用户分页响应
type UserListResponse struct {
	Users    []*UserProfile `json:"users"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// AdminCreateUserRequest 管理员创建用户请求
type AdminCreateUserRequest struct {
	PhoneNumber          string `json:"phone_number" validate:"required"`
	Password             string `json:"password" validate:"required,min=6,max=128"`
	Email                string `json:"email" validate:"omitempty,email,max=100"`
	Nickname             string `json:"nickname" validate:"omitempty,max=50"`
	UserRole             int    `json:"user_role" validate:"omitempty,min=1,max=3"`
	DailyPredictionLimit *int   `json:"daily_prediction_limit"`
}

// AdminUpdateUserRequest 管理员更新用户请求，nil 字段保持原值
type AdminUpdateUserRequest struct {
	PhoneNumber          *string `json:"phone_number"`
	Email                *string `json:"email"`
	Nickname             *string `json:"nickname"`
	UserRole             *int    `json:"user_role"`
	DailyPredictionLimit *int    `json:"daily_prediction_limit"`
	IsActive             *bool   `json:"is_active"`
}

// ListUsers 分页查询用户，keyword 模糊匹配手机号/邮箱/昵称
func (s *userAdminService) ListUsers(ctx context.Context, req ListUsersRequest) (*UserListResponse, error) {
	page, size := ClampPage(req.Page, req.PageSize)
	users, total, err := s.usersRepo.ListUsers(ctx, repository.UserFilters{
		Keyword: strings.TrimSpace(req.Keyword),
		Role:    req.Role,
	}, page, size)
	if err != nil {
		return nil, err
	}

	profiles := make([]*UserProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, profileOf(user))
	}
	return &UserListResponse{Users: profiles, Total: total, Page: page, PageSize: size}, nil
}

// CreateUser 管理员创建用户
func (s *userAdminService) CreateUser(ctx context.Context, req AdminCreateUserRequest) (*UserProfile, error) {
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Email = strings.TrimSpace(req.Email)

	if err := s.validate.Struct(req); err != nil {
		return nil, errBadRequest("用户信息格式不正确")
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

	role := req.UserRole
	if role == 0 {
		role = domain.RoleRegular
	}
	limit := 5
	if req.DailyPredictionLimit != nil {
		limit = *req.DailyPredictionLimit
	}
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		nickname = req.PhoneNumber
	}

	user := &domain.User{
		PhoneNumber:          req.PhoneNumber,
		PasswordHash:         string(hash),
		UserRole:             role,
		Nickname:             sql.NullString{String: nickname, Valid: true},
		DailyPredictionLimit: limit,
		IsActive:             true,
	}
	if req.Email != "" {
		user.Email = sql.NullString{String: req.Email, Valid: true}
	}

	userID, err := s.usersRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Admin created user",
		zap.Int64("user_id", userID),
		zap.Int("user_role", role),
	)

	created, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileOf(created), nil
}

// UpdateUser 管理员更新用户，包含自我保护规则
func (s *userAdminService) UpdateUser(ctx context.Context, operatorID, userID int64, req AdminUpdateUserRequest) (*UserProfile, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound("用户不存在")
		}
		return nil, err
	}

	if req.UserRole != nil {
		if *req.UserRole < domain.RoleRegular || *req.UserRole > domain.RoleAdmin {
			return nil, errBadRequest("用户角色必须为 1、2 或 3")
		}
		if userID == operatorID && *req.UserRole < domain.RoleAdmin {
			return nil, errBadRequest("不能降低自己的管理员权限")
		}
		user.UserRole = *req.UserRole
	}
	if req.IsActive != nil {
		if userID == operatorID && !*req.IsActive {
			return nil, errBadRequest("不能禁用自己的账号")
		}
		user.IsActive = *req.IsActive
	}

	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		if !phonePattern.MatchString(phone) {
			return nil, errBadRequest("手机号必须为11位数字")
		}
		if phone != user.PhoneNumber {
			if existing, err := s.usersRepo.GetUserByPhone(ctx, phone); err == nil && existing.UserID != userID {
				return nil, errBadRequest("该手机号已被注册")
			} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			user.PhoneNumber = phone
		}
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			user.Email = sql.NullString{}
		} else if !user.Email.Valid || email != user.Email.String {
			if existing, err := s.usersRepo.GetUserByEmail(ctx, email); err == nil && existing.UserID != userID {
				return nil, errBadRequest("该邮箱已被注册")
			} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			user.Email = sql.NullString{String: email, Valid: true}
		}
	}
	if req.Nickname != nil {
		user.Nickname = sql.NullString{String: strings.TrimSpace(*req.Nickname), Valid: true}
	}
	if req.DailyPredictionLimit != nil {
		user.DailyPredictionLimit = *req.DailyPredictionLimit
	}

	if err := s.usersRepo.UpdateUser(ctx, userID, user); err != nil {
		return nil, err
	}
	// 禁用账号时撤销全部会话，令其立即下线
	if req.IsActive != nil && !*req.IsActive {
		if err := s.sessionsRepo.DeleteSessionsByUser(ctx, userID); err != nil {
			s.logger.Warn("Revoke sessions failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	s.logger.Info("Admin updated user",
		zap.Int64("user_id", userID),
		zap.Int64("operator_id", operatorID),
	)

	updated, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileOf(updated), nil
}

// DeleteUser 管理员硬删除用户，不能删除自己
func (s *userAdminService) DeleteUser(ctx context.Context, operatorID, userID int64) error {
	if operatorID == userID {
		return errBadRequest("不能删除自己的账号")
	}
	if err := s.usersRepo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errNotFound("用户不存在")
		}
		return err
	}
	if err := s.sessionsRepo.DeleteSessionsByUser(ctx, userID); err != nil {
		s.logger.Warn("Revoke sessions failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	s.logger.Info("Admin deleted user",
		zap.Int64("user_id", userID),
		zap.Int64("operator_id", operatorID),
	)
	return nil
}
