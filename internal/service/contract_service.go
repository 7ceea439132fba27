package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"futures-signal/internal/domain"
	"futures-signal/internal/repository"
	"futures-signal/internal/tushare"
)

// ContractService 合约同步与到期下架服务
type ContractService interface {
	// SyncContracts 从行情数据源同步合约基础信息，返回同步条数
	SyncContracts(ctx context.Context) (int, error)
	// SweepExpired 软删除已到期合约的帖子，返回下架帖子数
	SweepExpired(ctx context.Context) (int64, error)
}

// contractService 实现
type contractService struct {
	contractsRepo repository.ContractsRepository
	postsRepo     repository.PostsRepository
	tushareClient *tushare.Client
	logger        *zap.Logger
}

// NewContractService 创建 ContractService 实例
func NewContractService(
	contractsRepo repository.ContractsRepository,
	postsRepo repository.PostsRepository,
	tushareClient *tushare.Client,
	logger *zap.Logger,
) ContractService {
	return &contractService{
		contractsRepo: contractsRepo,
		postsRepo:     postsRepo,
		tushareClient: tushareClient,
		logger:        logger,
	}
}

// 同步的交易所列表
var syncExchanges = []string{"SHFE", "DCE", "CZCE", "CFFEX", "INE", "GFEX"}

// SyncContracts 拉取 fut_basic 并落库
func (s *contractService) SyncContracts(ctx context.Context) (int, error) {
	if !s.tushareClient.Configured() {
		return 0, NewError(503, "行情数据源未配置")
	}

	synced := 0
	for _, exchange := range syncExchanges {
		infos, err := s.tushareClient.FutBasic(ctx, exchange)
		if err != nil {
			s.logger.Error("Sync contracts failed for exchange",
				zap.String("exchange", exchange),
				zap.Error(err),
			)
			continue
		}
		for _, info := range infos {
			contract := &domain.Contract{
				ContractCode: tushare.FromTsCode(info.TsCode),
				ContractName: info.Name,
				ExchangeCode: info.Exchange,
				IsActive:     true,
			}
			if info.Multiplier > 0 {
				contract.ContractMultiplier = sql.NullFloat64{Float64: info.Multiplier, Valid: true}
			}
			if t, ok := parseCompactDate(info.ListDate); ok {
				contract.ListedDate = sql.NullTime{Time: t, Valid: true}
			}
			if t, ok := parseCompactDate(info.DelistDate); ok {
				contract.ExpiryDate = sql.NullTime{Time: t, Valid: true}
				if t.Before(time.Now()) {
					contract.IsActive = false
				}
			}
			if err := s.contractsRepo.UpsertContract(ctx, contract); err != nil {
				s.logger.Warn("Upsert contract failed",
					zap.String("contract_code", contract.ContractCode),
					zap.Error(err),
				)
				continue
			}
			synced++
		}
	}
	s.logger.Info("Contracts synced", zap.Int("count", synced))
	return synced, nil
}

// SweepExpired 扫描在用合约并下架已到期合约的帖子
// 合约表缺失记录时按合约代码中的 YYMM 推断到期月份。
func (s *contractService) SweepExpired(ctx context.Context) (int64, error) {
	codes, err := s.postsRepo.ListActiveContractCodes(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	expiredKnown, err := s.contractsRepo.ListExpiredCodes(ctx, now)
	if err != nil {
		return 0, err
	}
	knownExpired := make(map[string]bool, len(expiredKnown))
	for _, code := range expiredKnown {
		knownExpired[code] = true
	}

	var expired []string
	for _, code := range codes {
		if knownExpired[code] {
			expired = append(expired, code)
			continue
		}
		contract, err := s.contractsRepo.GetByCode(ctx, code)
		switch {
		case err == nil && contract.ExpiryDate.Valid:
			// 合约表中有明确到期日且未到期
		case err == nil || errors.Is(err, sql.ErrNoRows):
			if t, ok := ExpiryFromCode(code, now); ok && t.Before(now) {
				expired = append(expired, code)
			}
		default:
			return 0, err
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	removed, err := s.postsRepo.SoftDeleteByContractCodes(ctx, expired)
	if err != nil {
		return 0, err
	}
	if _, err := s.contractsRepo.DeactivateByCodes(ctx, expired); err != nil {
		s.logger.Warn("Deactivate expired contracts failed", zap.Error(err))
	}

	s.logger.Info("Expired contract posts swept",
		zap.Strings("contract_codes", expired),
		zap.Int64("posts_removed", removed),
	)
	return removed, nil
}

var codeYYMMPattern = regexp.MustCompile(`^[A-Za-z]+(\d{3,4})$`)

// ExpiryFromCode 从合约代码的 YYMM 部分推断到期时间（到期月份的月末）
// 兼容郑商所三位数字代码（如 CF605 表示 2026-05）。
func ExpiryFromCode(code string, now time.Time) (time.Time, bool) {
	m := codeYYMMPattern.FindStringSubmatch(code)
	if m == nil {
		return time.Time{}, false
	}
	digits := m[1]

	var year, month int
	if len(digits) == 4 {
		yy, _ := strconv.Atoi(digits[:2])
		month, _ = strconv.Atoi(digits[2:])
		year = 2000 + yy
	} else {
		// 三位数字：取当前年代补全十位
		y, _ := strconv.Atoi(digits[:1])
		month, _ = strconv.Atoi(digits[1:])
		decade := (now.Year() / 10) * 10
		year = decade + y
		if year < now.Year()-2 {
			year += 10
		}
	}
	if month < 1 || month > 12 {
		return time.Time{}, false
	}

	// 到期视为当月最后一天
	firstOfNext := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Second), true
}

func parseCompactDate(s string) (time.Time, bool) {
	if len(s) != 8 {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("20060102", s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
