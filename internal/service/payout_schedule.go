package service

import (
	"context"
	"time"

	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/transfer"
	"go.uber.org/zap"
)

// PayoutScheduleService 定时结算服务
// 按结算周期反复调用批量结算入口，与运营手动触发走同一段代码
type PayoutScheduleService struct {
	batchService *PayoutBatchService
	stopChan     chan struct{}
}

// NewPayoutScheduleService 创建定时结算服务
func NewPayoutScheduleService(client transfer.Client) *PayoutScheduleService {
	return &PayoutScheduleService{
		batchService: NewPayoutBatchService(client),
		stopChan:     make(chan struct{}),
	}
}

// Start 启动定时结算
func (s *PayoutScheduleService) Start(ctx context.Context) {
	interval := config.Cfg.Payout.SettleInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Logger.Info("定时结算服务已启动",
		zap.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.stopChan:
			logger.Logger.Info("定时结算服务已停止")
			return
		case <-ctx.Done():
			logger.Logger.Info("定时结算服务已停止（上下文取消）")
			return
		}
	}
}

// Stop 停止定时结算
func (s *PayoutScheduleService) Stop() {
	close(s.stopChan)
}

// runOnce 执行一轮批量结算
func (s *PayoutScheduleService) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error("定时结算异常",
				zap.Any("panic", r))
		}
	}()

	s.batchService.ProcessPayouts(ctx)
}
