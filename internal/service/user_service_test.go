package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"futures-signal/internal/domain"
)

func seedAdminUser(t *testing.T, users *fakeUsersRepo, phone string, role int) int64 {
	id, err := users.CreateUser(context.Background(), &domain.User{
		PhoneNumber:          phone,
		PasswordHash:         "x",
		UserRole:             role,
		Nickname:             sql.NullString{String: phone, Valid: true},
		DailyPredictionLimit: 5,
		IsActive:             true,
	})
	require.NoError(t, err)
	return id
}

func seedSession(t *testing.T, sessions *fakeSessionsRepo, userID int64) string {
	hash := "0123456789abcdef0123456789abcdef"
	_, err := sessions.CreateSession(context.Background(), &domain.Session{
		UserID:    userID,
		TokenHash: hash,
		ExpireAt:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return hash
}

func TestAdminDeactivateRevokesSessions(t *testing.T) {
	users := newFakeUsersRepo()
	sessions := newFakeSessionsRepo()
	svc := NewUserAdminService(users, sessions, zap.NewNop())
	ctx := context.Background()

	adminID := seedAdminUser(t, users, "13900000001", domain.RoleAdmin)
	targetID := seedAdminUser(t, users, "13900000002", domain.RoleRegular)
	hash := seedSession(t, sessions, targetID)

	inactive := false
	profile, err := svc.UpdateUser(ctx, adminID, targetID, AdminUpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, profile.IsActive)

	// 被禁用用户的会话应已撤销
	_, err = sessions.GetSessionByTokenHash(ctx, hash)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAdminDeleteRevokesSessions(t *testing.T) {
	users := newFakeUsersRepo()
	sessions := newFakeSessionsRepo()
	svc := NewUserAdminService(users, sessions, zap.NewNop())
	ctx := context.Background()

	adminID := seedAdminUser(t, users, "13900000003", domain.RoleAdmin)
	targetID := seedAdminUser(t, users, "13900000004", domain.RoleMember)
	hash := seedSession(t, sessions, targetID)

	require.NoError(t, svc.DeleteUser(ctx, adminID, targetID))

	_, err := sessions.GetSessionByTokenHash(ctx, hash)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = users.GetUser(ctx, targetID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAdminSelfGuards(t *testing.T) {
	users := newFakeUsersRepo()
	sessions := newFakeSessionsRepo()
	svc := NewUserAdminService(users, sessions, zap.NewNop())
	ctx := context.Background()

	adminID := seedAdminUser(t, users, "13900000005", domain.RoleAdmin)

	lower := domain.RoleMember
	_, err := svc.UpdateUser(ctx, adminID, adminID, AdminUpdateUserRequest{UserRole: &lower})
	svcErr := AsError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.Status)

	inactive := false
	_, err = svc.UpdateUser(ctx, adminID, adminID, AdminUpdateUserRequest{IsActive: &inactive})
	svcErr = AsError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.Status)

	err = svc.DeleteUser(ctx, adminID, adminID)
	svcErr = AsError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.Status)
}
