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
	"futures-signal/internal/repository"
	"futures-signal/internal/tushare"
)

func TestExpiryFromCode(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.Local)

	expiry, ok := ExpiryFromCode("CU2601", now)
	require.True(t, ok)
	assert.Equal(t, 2026, expiry.Year())
	assert.Equal(t, time.January, expiry.Month())
	assert.True(t, expiry.Before(now))

	expiry, ok = ExpiryFromCode("IF2612", now)
	require.True(t, ok)
	assert.False(t, expiry.Before(now))

	// 郑商所三位数字代码按当前年代补全
	expiry, ok = ExpiryFromCode("CF605", now)
	require.True(t, ok)
	assert.Equal(t, 2026, expiry.Year())
	assert.Equal(t, time.May, expiry.Month())

	_, ok = ExpiryFromCode("CU2613", now)
	assert.False(t, ok, "month 13 is invalid")

	_, ok = ExpiryFromCode("INVALID", now)
	assert.False(t, ok)
}

// fakeContractsRepo 内存版合约Repository
type fakeContractsRepo struct {
	contracts   map[string]*domain.Contract
	deactivated []string
}

var _ repository.ContractsRepository = (*fakeContractsRepo)(nil)

func newFakeContractsRepo() *fakeContractsRepo {
	return &fakeContractsRepo{contracts: map[string]*domain.Contract{}}
}

func (f *fakeContractsRepo) GetByCode(ctx context.Context, code string) (*domain.Contract, error) {
	if c, ok := f.contracts[code]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeContractsRepo) UpsertContract(ctx context.Context, contract *domain.Contract) error {
	copied := *contract
	f.contracts[contract.ContractCode] = &copied
	return nil
}

func (f *fakeContractsRepo) ListExpiredCodes(ctx context.Context, asOf time.Time) ([]string, error) {
	var codes []string
	for code, c := range f.contracts {
		if c.ExpiryDate.Valid && c.ExpiryDate.Time.Before(asOf) {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func (f *fakeContractsRepo) DeactivateByCodes(ctx context.Context, codes []string) (int64, error) {
	for _, code := range codes {
		if c, ok := f.contracts[code]; ok {
			c.IsActive = false
		}
		f.deactivated = append(f.deactivated, code)
	}
	return int64(len(codes)), nil
}

// sweepPostsRepo 仅支撑到期下架流程的帖子Repository
type sweepPostsRepo struct {
	activeCodes []string
	softDeleted []string
}

var _ repository.PostsRepository = (*sweepPostsRepo)(nil)

func (f *sweepPostsRepo) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	return nil, sql.ErrNoRows
}
func (f *sweepPostsRepo) ListPosts(ctx context.Context, filters repository.PostFilters, page, size int) ([]*domain.Post, int, error) {
	return nil, 0, nil
}
func (f *sweepPostsRepo) CreatePost(ctx context.Context, post *domain.Post) (int64, error) {
	return 0, nil
}
func (f *sweepPostsRepo) UpdatePost(ctx context.Context, id int64, post *domain.Post) error {
	return sql.ErrNoRows
}
func (f *sweepPostsRepo) SoftDeletePost(ctx context.Context, id int64) error { return sql.ErrNoRows }
func (f *sweepPostsRepo) AdjustCollectCount(ctx context.Context, id int64, delta int) error {
	return nil
}
func (f *sweepPostsRepo) UpdateCurrentPrice(ctx context.Context, code string, price float64) (int64, error) {
	return 0, nil
}
func (f *sweepPostsRepo) SoftDeleteByContractCodes(ctx context.Context, codes []string) (int64, error) {
	f.softDeleted = append(f.softDeleted, codes...)
	return int64(len(codes)), nil
}
func (f *sweepPostsRepo) ListActiveContractCodes(ctx context.Context) ([]string, error) {
	return f.activeCodes, nil
}

func TestSweepExpiredUsesContractTableAndCodeFallback(t *testing.T) {
	contracts := newFakeContractsRepo()
	posts := &sweepPostsRepo{activeCodes: []string{"CU2601", "IF2612", "AU3012"}}
	svc := NewContractService(contracts, posts, tushare.NewClient("http://api.tushare.pro", "", zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	// CU2601 在合约表中且已到期；IF2612 在表中未到期；AU3012 无记录，按代码推断（未到期）
	require.NoError(t, contracts.UpsertContract(ctx, &domain.Contract{
		ContractCode: "CU2601",
		ExpiryDate:   sql.NullTime{Time: time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local), Valid: true},
	}))
	require.NoError(t, contracts.UpsertContract(ctx, &domain.Contract{
		ContractCode: "IF2612",
		ExpiryDate:   sql.NullTime{Time: time.Now().AddDate(1, 0, 0), Valid: true},
	}))

	removed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, []string{"CU2601"}, posts.softDeleted)
	assert.Equal(t, []string{"CU2601"}, contracts.deactivated)
}

func TestClampPage(t *testing.T) {
	page, size := ClampPage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	page, size = ClampPage(3, 250)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, size)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
}
