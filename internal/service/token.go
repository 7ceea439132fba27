package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims 访问令牌载荷
type TokenClaims struct {
	UserID   int64 `json:"user_id"`
	UserRole int   `json:"user_role"`
	jwt.RegisteredClaims
}

// TokenManager JWT 令牌签发与校验
// 令牌本身无状态，登出撤销依赖 user_sessions 表按哈希删除。
type TokenManager struct {
	secret      []byte
	expireHours int
}

// NewTokenManager 创建令牌管理器
func NewTokenManager(secret string, expireHours int) *TokenManager {
	return &TokenManager{secret: []byte(secret), expireHours: expireHours}
}

// Generate 签发访问令牌，返回令牌与过期时间
func (m *TokenManager) Generate(userID int64, userRole int) (string, time.Time, error) {
	now := time.Now()
	expireAt := now.Add(time.Duration(m.expireHours) * time.Hour)

	claims := TokenClaims{
		UserID:   userID,
		UserRole: userRole,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expireAt),
			Subject:   fmt.Sprintf("%d", userID),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expireAt, nil
}

// Parse 校验并解析访问令牌
func (m *TokenManager) Parse(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// HashToken 计算令牌的 SHA256 哈希（hex 编码），用于会话存储
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
