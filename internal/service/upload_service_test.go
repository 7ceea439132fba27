package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"futures-signal/internal/domain"
	"futures-signal/internal/market"
)

const sampleCSV = "time,open,high,low,close,volume\n" +
	"2025-01-06,3500,3550,3480,3520,12345\n" +
	"2025-01-07,3520,3580,3510,3570,23456\n" +
	"2025-01-08,3570,3600,3540,3590,34567\n"

func newTestUploadService(t *testing.T) UploadService {
	svc, err := NewUploadService(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestSaveUploadCSV(t *testing.T) {
	svc := newTestUploadService(t)

	result, err := svc.SaveUpload(context.Background(), "rb_daily.csv", []byte(sampleCSV))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.FileID, "rb_daily_"))
	assert.Equal(t, "rb_daily.csv", result.Filename)
	assert.Equal(t, 3, result.Rows)
	assert.True(t, result.Validated)
	require.Len(t, result.Data, 3)
	// 行顺序与文件一致
	assert.Equal(t, "2025-01-06", result.Data[0].Time)
	assert.Equal(t, "2025-01-08", result.Data[2].Time)
}

func TestSaveUploadRejectsUnknownExtension(t *testing.T) {
	svc := newTestUploadService(t)

	_, err := svc.SaveUpload(context.Background(), "data.txt", []byte(sampleCSV))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, AsError(err).Status)
}

func TestSaveUploadRejectsInvalidData(t *testing.T) {
	svc := newTestUploadService(t)

	bad := "time,open,high,low,close\n2025-01-06,100,90,110,105\n2025-01-07,105,112,101,108\n"
	_, err := svc.SaveUpload(context.Background(), "bad.csv", []byte(bad))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, AsError(err).Status)
}

func TestLoadUploadRoundTrip(t *testing.T) {
	svc := newTestUploadService(t)
	ctx := context.Background()

	result, err := svc.SaveUpload(ctx, "rb_daily.csv", []byte(sampleCSV))
	require.NoError(t, err)

	bars, err := svc.LoadUpload(ctx, result.FileID)
	require.NoError(t, err)
	assert.Equal(t, result.Data, bars)
}

func TestLoadUploadMissing(t *testing.T) {
	svc := newTestUploadService(t)

	_, err := svc.LoadUpload(context.Background(), "nope_12345678")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, AsError(err).Status)
}

func TestLoadUploadRejectsPathTraversal(t *testing.T) {
	svc := newTestUploadService(t)

	_, err := svc.LoadUpload(context.Background(), "../etc/passwd")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, AsError(err).Status)
}

func TestPredictEnforcesDailyLimit(t *testing.T) {
	users := newFakeUsersRepo()
	uploads := newTestUploadService(t)
	svc := NewPredictService(users, uploads, market.NewFallbackEngine(1), zap.NewNop())
	ctx := context.Background()

	userID, err := users.CreateUser(ctx, &domain.User{
		PhoneNumber:          "13800005678",
		PasswordHash:         "x",
		UserRole:             domain.RoleRegular,
		DailyPredictionLimit: 1,
		IsActive:             true,
	})
	require.NoError(t, err)

	uploaded, err := uploads.SaveUpload(ctx, "rb_daily.csv", []byte(sampleCSV))
	require.NoError(t, err)

	resp, err := svc.Predict(ctx, userID, PredictRequest{FileID: uploaded.FileID, Days: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Predictions, 3)
	assert.Equal(t, 3, resp.Metadata.RowsUsed)
	assert.True(t, resp.Metadata.Fallback)

	// 次数耗尽后 403，detail 为结构化对象
	_, err = svc.Predict(ctx, userID, PredictRequest{FileID: uploaded.FileID})
	require.Error(t, err)
	svcErr := AsError(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusForbidden, svcErr.Status)
	detail, ok := svcErr.Detail.(limitDetail)
	require.True(t, ok)
	assert.Equal(t, 1, detail.Limit)
	assert.Equal(t, 0, detail.Remaining)
}

func TestPredictMemberUnlimited(t *testing.T) {
	users := newFakeUsersRepo()
	uploads := newTestUploadService(t)
	svc := NewPredictService(users, uploads, market.NewFallbackEngine(1), zap.NewNop())
	ctx := context.Background()

	userID, err := users.CreateUser(ctx, &domain.User{
		PhoneNumber:          "13800005679",
		PasswordHash:         "x",
		UserRole:             domain.RoleMember,
		DailyPredictionLimit: 1,
		IsActive:             true,
	})
	require.NoError(t, err)

	uploaded, err := uploads.SaveUpload(ctx, "rb_daily.csv", []byte(sampleCSV))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Predict(ctx, userID, PredictRequest{FileID: uploaded.FileID})
		require.NoError(t, err)
	}
	// 会员预测不计数
	user, _ := users.GetUser(ctx, userID)
	assert.Equal(t, 0, user.PredictionCount)
}
