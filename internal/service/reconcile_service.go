package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReconcileService 对账服务
// 消费处理器异步回调（转账失败/转账冲正），对已经"完成"的打款单
// 做追溯回滚：迟到的处理器侧事实覆盖此前的乐观成功
type ReconcileService struct {
	notifyService *NotifyService
}

// NewReconcileService 创建对账服务
func NewReconcileService() *ReconcileService {
	return &ReconcileService{
		notifyService: NewNotifyService(),
	}
}

// HandleTransferFailed 处理 transfer.failed 回调
func (s *ReconcileService) HandleTransferFailed(ctx context.Context, transferID string) error {
	return s.reconcile(ctx, transferID, "transfer_failed", "转账失败（webhook 回调）")
}

// HandleTransferReversed 处理 transfer.reversed 回调
func (s *ReconcileService) HandleTransferReversed(ctx context.Context, transferID string) error {
	return s.reconcile(ctx, transferID, "transfer_reversed", "转账被冲正（webhook 回调）")
}

// reconcile 按转账单号回滚打款单
// 未找到或已是失败状态均为良性无操作（回调可能是陈旧的、重复的
// 或与本系统无关的），保证幂等
func (s *ReconcileService) reconcile(ctx context.Context, transferID, event, reason string) error {
	var payout models.Payout
	if err := database.DB.Where("stripe_transfer_id = ?", transferID).First(&payout).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Logger.Info("回调的转账单号不属于本系统或已对账，忽略",
				zap.String("transfer_id", transferID),
				zap.String("event", event))
			return nil
		}
		return fmt.Errorf("查询打款单失败: %w", err)
	}

	if payout.Status == models.PayoutStatusFailed {
		// 已经回滚过，重复回调无操作
		logger.Logger.Debug("打款单已是失败状态，重复回调忽略",
			zap.Int64("payout_id", payout.ID),
			zap.String("transfer_id", transferID))
		return nil
	}

	// 与结算失败路径同形状的回滚，追溯应用到已完成的打款单
	tx := database.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	now := time.Now()

	if err := tx.Model(&models.TipDistribution{}).
		Where("payout_id = ?", payout.ID).
		Updates(map[string]interface{}{
			"payout_id":       nil,
			"update_datetime": &now,
		}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("解除份额占有失败: %w", err)
	}

	if err := tx.Model(&models.Payout{}).
		Where("id = ?", payout.ID).
		Updates(map[string]interface{}{
			"status":          models.PayoutStatusFailed,
			"failure_reason":  reason,
			"processed_at":    nil,
			"update_datetime": &now,
		}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("标记打款单失败状态失败: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交对账回滚事务失败: %w", err)
	}

	payoutReconcileTotal.WithLabelValues(event).Inc()

	s.notifyService.SendStaffNotification(ctx, payout.StaffID,
		models.NotificationKindPayoutFailed,
		"打款被撤销",
		fmt.Sprintf("金额 %d(%s) 的打款被支付处理器撤销，余额将在下一轮重新结算", payout.Amount, payout.Currency),
		map[string]interface{}{
			"payout_no":   payout.PayoutNo,
			"transfer_id": transferID,
			"event":       event,
		})

	logger.Logger.Warn("打款单已按处理器回调回滚",
		zap.Int64("payout_id", payout.ID),
		zap.String("payout_no", payout.PayoutNo),
		zap.String("transfer_id", transferID),
		zap.String("event", event))

	return nil
}
