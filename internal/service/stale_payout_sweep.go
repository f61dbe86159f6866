package service

import (
	"context"
	"time"

	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/models"
	"github.com/hotel-tip-core/internal/transfer"
	"go.uber.org/zap"
)

// StalePayoutSweepService 卡死打款单回收服务
// 兜底机制：占有事务提交后、外部转账发出前进程崩溃，会留下
// processing 且无转账单号的打款单；定时扫描把超时的这类单子按
// 失败路径回滚，份额重新回到可结算集合
type StalePayoutSweepService struct {
	settleService *PayoutSettleService
	stopChan      chan struct{}
}

// NewStalePayoutSweepService 创建卡死打款单回收服务
func NewStalePayoutSweepService(client transfer.Client) *StalePayoutSweepService {
	return &StalePayoutSweepService{
		settleService: NewPayoutSettleService(client),
		stopChan:      make(chan struct{}),
	}
}

// Start 启动回收服务（每5分钟扫描一次）
func (s *StalePayoutSweepService) Start(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	logger.Logger.Info("卡死打款单回收服务已启动（每5分钟检查一次）")

	// 立即执行一次
	s.SweepStalePayouts(ctx)

	for {
		select {
		case <-ticker.C:
			s.SweepStalePayouts(ctx)
		case <-s.stopChan:
			logger.Logger.Info("卡死打款单回收服务已停止")
			return
		case <-ctx.Done():
			logger.Logger.Info("卡死打款单回收服务已停止（上下文取消）")
			return
		}
	}
}

// Stop 停止回收服务
func (s *StalePayoutSweepService) Stop() {
	close(s.stopChan)
}

// SweepStalePayouts 扫描并回滚卡死的打款单
// 返回回滚的数量
func (s *StalePayoutSweepService) SweepStalePayouts(ctx context.Context) int {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error("卡死打款单回收异常",
				zap.Any("panic", r))
		}
	}()

	staleTimeout := config.Cfg.Payout.StaleTimeout
	if staleTimeout <= 0 {
		staleTimeout = 30 * time.Minute
	}
	cutoff := time.Now().Add(-staleTimeout)

	// processing 且没有转账单号、且创建时间早于阈值的打款单
	var stale []models.Payout
	if err := database.DB.
		Where("status = ?", models.PayoutStatusProcessing).
		Where("stripe_transfer_id IS NULL OR stripe_transfer_id = ''").
		Where("create_datetime < ?", cutoff).
		Find(&stale).Error; err != nil {
		logger.Logger.Error("查询卡死打款单失败", zap.Error(err))
		return 0
	}

	if len(stale) == 0 {
		return 0
	}

	swept := 0
	for _, payout := range stale {
		if err := s.settleService.rollbackPayout(payout.ID, "打款超时未发出转账（回收任务回滚）"); err != nil {
			logger.Logger.Error("回滚卡死打款单失败",
				zap.Int64("payout_id", payout.ID),
				zap.Error(err))
			continue
		}
		swept++
		logger.Logger.Warn("卡死打款单已回滚，份额重新可结算",
			zap.Int64("payout_id", payout.ID),
			zap.String("payout_no", payout.PayoutNo),
			zap.Int64("staff_id", payout.StaffID),
			zap.Int64("amount", payout.Amount))
	}

	return swept
}
