// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"

	"futures-signal/internal/config"
	"futures-signal/internal/database"
	"futures-signal/internal/domain"
)

// 获取测试数据库连接
func getTestDB(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "futures_signal_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
		MaxConns: 5,
		MaxIdle:  2,
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	if err := database.ApplySchema(db); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	return db
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// 创建测试用户
func createTestUser(t *testing.T, repo UsersRepository, phone string, role int) int64 {
	userID, err := repo.CreateUser(context.Background(), &domain.User{
		PhoneNumber:          phone,
		PasswordHash:         "$2a$10$placeholderplaceholderplaceholde",
		UserRole:             role,
		Nickname:             sql.NullString{String: phone, Valid: true},
		DailyPredictionLimit: 5,
		IsActive:             true,
	})
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return userID
}

// 清理测试数据
func cleanupTestUser(t *testing.T, db *sql.DB, userID int64) {
	db.Exec(`DELETE FROM posts WHERE author_id = $1`, userID)
	db.Exec(`DELETE FROM users WHERE user_id = $1`, userID)
}

func TestUsersRepositoryCRUD(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)
	ctx := context.Background()

	userID := createTestUser(t, repo, "13800000901", domain.RoleRegular)
	defer cleanupTestUser(t, db, userID)

	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.PhoneNumber != "13800000901" {
		t.Errorf("phone = %s, want 13800000901", user.PhoneNumber)
	}
	if user.DailyPredictionLimit != 5 {
		t.Errorf("daily_prediction_limit = %d, want 5", user.DailyPredictionLimit)
	}
	if !user.IsActive {
		t.Error("new user should be active")
	}

	byPhone, err := repo.GetUserByPhone(ctx, "13800000901")
	if err != nil || byPhone.UserID != userID {
		t.Fatalf("GetUserByPhone failed: %v", err)
	}

	user.UserRole = domain.RoleMember
	user.Nickname = sql.NullString{String: "trader-901", Valid: true}
	if err := repo.UpdateUser(ctx, userID, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	updated, _ := repo.GetUser(ctx, userID)
	if updated.UserRole != domain.RoleMember {
		t.Errorf("role = %d, want %d", updated.UserRole, domain.RoleMember)
	}

	users, total, err := repo.ListUsers(ctx, UserFilters{Keyword: "trader-901"}, 1, 10)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if total < 1 || len(users) < 1 {
		t.Errorf("keyword search returned %d users, want >= 1", total)
	}

	if err := repo.IncrementPredictionCount(ctx, userID); err != nil {
		t.Fatalf("IncrementPredictionCount failed: %v", err)
	}
	counted, _ := repo.GetUser(ctx, userID)
	if counted.PredictionCount != 1 {
		t.Errorf("prediction_count = %d, want 1", counted.PredictionCount)
	}
	if _, err := repo.ResetPredictionCounts(ctx); err != nil {
		t.Fatalf("ResetPredictionCounts failed: %v", err)
	}
	reset, _ := repo.GetUser(ctx, userID)
	if reset.PredictionCount != 0 {
		t.Errorf("prediction_count after reset = %d, want 0", reset.PredictionCount)
	}

	if err := repo.DeleteUser(ctx, userID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := repo.GetUser(ctx, userID); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
}
