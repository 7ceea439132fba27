package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"futures-signal/internal/repository"
	"futures-signal/internal/service"
)

// Scheduler 后台定时任务编排
// 任务失败只记日志不中断进程；同一任务不并发重入。
type Scheduler struct {
	cron     *cron.Cron
	prices   service.PriceService
	contract service.ContractService
	users    repository.UsersRepository
	sessions repository.SessionsRepository
	logger   *zap.Logger
}

// New 创建调度器
func New(
	prices service.PriceService,
	contract service.ContractService,
	users repository.UsersRepository,
	sessions repository.SessionsRepository,
	logger *zap.Logger,
) *Scheduler {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))
	return &Scheduler{
		cron:     c,
		prices:   prices,
		contract: contract,
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// Start 注册并启动全部任务
// priceIntervalMinutes 控制现价刷新周期；expirySweep 为 false 时跳过到期下架任务。
func (s *Scheduler) Start(priceIntervalMinutes int, expirySweep bool) error {
	if priceIntervalMinutes < 1 {
		priceIntervalMinutes = 5
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", priceIntervalMinutes), s.refreshPrices); err != nil {
		return fmt.Errorf("register price refresh job: %w", err)
	}
	if expirySweep {
		// 每日凌晨两点下架到期合约的帖子
		if _, err := s.cron.AddFunc("0 2 * * *", s.sweepExpired); err != nil {
			return fmt.Errorf("register expiry sweep job: %w", err)
		}
	}
	// 每日零点重置预测次数
	if _, err := s.cron.AddFunc("0 0 * * *", s.resetPredictionCounts); err != nil {
		return fmt.Errorf("register prediction reset job: %w", err)
	}
	// 每小时清理过期会话
	if _, err := s.cron.AddFunc("@hourly", s.cleanupSessions); err != nil {
		return fmt.Errorf("register session cleanup job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.Int("price_interval_minutes", priceIntervalMinutes),
		zap.Bool("expiry_sweep", expirySweep),
	)
	return nil
}

// Stop 停止调度并等待在途任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) refreshPrices() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.prices.RefreshPrices(ctx); err != nil {
		s.logger.Error("Price refresh job failed", zap.Error(err))
	}
}

func (s *Scheduler) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.contract.SweepExpired(ctx); err != nil {
		s.logger.Error("Expiry sweep job failed", zap.Error(err))
	}
}

func (s *Scheduler) resetPredictionCounts() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reset, err := s.users.ResetPredictionCounts(ctx)
	if err != nil {
		s.logger.Error("Prediction count reset job failed", zap.Error(err))
		return
	}
	s.logger.Info("Prediction counts reset", zap.Int64("users", reset))
}

func (s *Scheduler) cleanupSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		s.logger.Error("Session cleanup job failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("Expired sessions cleaned", zap.Int64("sessions", removed))
	}
}
