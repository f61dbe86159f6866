package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/models"
	"github.com/hotel-tip-core/internal/mq"
	"github.com/hotel-tip-core/internal/transfer"
	"github.com/hotel-tip-core/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutSettleService 打款结算服务
// 两阶段提交：先在一个事务里占有份额（claim），提交后再发起外部转账；
// 转账失败时在第二个事务里解除占有，保证份额对下一轮批量结算始终可见
type PayoutSettleService struct {
	transferClient transfer.Client
	notifyService  *NotifyService
}

// NewPayoutSettleService 创建打款结算服务
func NewPayoutSettleService(client transfer.Client) *PayoutSettleService {
	return &PayoutSettleService{
		transferClient: client,
		notifyService:  NewNotifyService(),
	}
}

// unpaidDistributionQuery 未结算份额查询
// 条件：payout_id 为空且所属小费支付成功
func unpaidDistributionQuery(tx *gorm.DB, staffID int64) *gorm.DB {
	return tx.Model(&models.TipDistribution{}).
		Joins("JOIN tip_tip ON tip_tip.id = tip_distribution.tip_id").
		Where("tip_distribution.staff_id = ?", staffID).
		Where("tip_distribution.payout_id IS NULL").
		Where("tip_tip.status = ?", models.TipStatusSucceeded)
}

// lockForUpdate 给查询加行锁
// sqlite（测试环境）不支持 FOR UPDATE，跳过加锁
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// SettleStaff 结算单个员工的未付余额
// 无未付份额或余额低于门槛时无副作用返回 nil；
// 未入驻、转账失败等不可恢复错误向调用方抛出
func (s *PayoutSettleService) SettleStaff(ctx context.Context, staffID int64) error {
	// 入驻校验：必须有收款账户且完成 Stripe 入驻
	var staff models.StaffMember
	if err := database.DB.Where("id = ?", staffID).First(&staff).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrStaffNotFound
		}
		return fmt.Errorf("查询员工失败: %w", err)
	}
	if staff.StripeAccountID == nil || *staff.StripeAccountID == "" || !staff.StripeOnboarded {
		return ErrStaffNotOnboarded
	}

	minAmount := config.Cfg.Payout.MinPayoutAmount
	currency := s.payoutCurrency(staff.HotelID)

	// 阶段A：在一个事务里重新快照未付份额、创建打款单并占有份额
	// 该事务必须在外部转账调用之前提交，是对份额的持久化占有
	tx := database.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var distributions []models.TipDistribution
	if err := lockForUpdate(unpaidDistributionQuery(tx, staffID)).
		Select("tip_distribution.*").
		Order("tip_distribution.id").
		Find(&distributions).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("查询未结算份额失败: %w", err)
	}

	var total int64
	ids := make([]int64, 0, len(distributions))
	for _, d := range distributions {
		total += d.Amount
		ids = append(ids, d.ID)
	}

	if len(ids) == 0 || total < minAmount {
		// 余额滚动到下一轮，无副作用
		tx.Rollback()
		return nil
	}

	now := time.Now()
	payout := &models.Payout{
		PayoutNo:       utils.GeneratePayoutNo(),
		StaffID:        staffID,
		Amount:         total,
		Currency:       currency,
		Status:         models.PayoutStatusProcessing,
		CreateDatetime: &now,
		UpdateDatetime: &now,
	}
	if err := tx.Create(payout).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("创建打款单失败: %w", err)
	}

	if err := tx.Model(&models.TipDistribution{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"payout_id":       payout.ID,
			"update_datetime": &now,
		}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("占有份额失败: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交占有事务失败: %w", err)
	}

	logger.Logger.Info("份额已占有，准备发起转账",
		zap.Int64("staff_id", staffID),
		zap.String("payout_no", payout.PayoutNo),
		zap.Int64("amount", total),
		zap.Int("distributions", len(ids)))

	// 发起外部转账
	result, transferErr := s.transferClient.CreateTransfer(ctx, &transfer.TransferRequest{
		Amount:      total,
		Currency:    currency,
		Destination: *staff.StripeAccountID,
		Metadata: map[string]string{
			"payout_no": payout.PayoutNo,
			"staff_id":  fmt.Sprintf("%d", staffID),
		},
		IdempotencyKey: uuid.NewString(),
	})

	if transferErr != nil {
		// 阶段B：转账失败，解除占有并把打款单置为失败，然后向调用方抛出
		if err := s.rollbackPayout(payout.ID, fmt.Sprintf("转账失败: %v", transferErr)); err != nil {
			// 回滚本身失败：卡死打款单回收任务会兜底
			logger.Logger.Error("转账失败后回滚占有失败",
				zap.Int64("payout_id", payout.ID),
				zap.Error(err))
		}

		s.notifyService.SendStaffNotification(ctx, staffID,
			models.NotificationKindPayoutFailed,
			"打款失败",
			fmt.Sprintf("金额 %d(%s) 的打款未能完成，稍后将自动重试", total, currency),
			map[string]interface{}{
				"payout_no": payout.PayoutNo,
				"amount":    total,
			})

		mq.PublishPayoutResult(ctx, &mq.PayoutResultMessage{
			PayoutID:      payout.ID,
			PayoutNo:      payout.PayoutNo,
			StaffID:       staffID,
			Amount:        total,
			Currency:      currency,
			Status:        int(models.PayoutStatusFailed),
			FailureReason: transferErr.Error(),
			Timestamp:     time.Now().Unix(),
		})

		return NewPayoutError(ErrCodeTransferFailed, fmt.Sprintf("转账失败: %v", transferErr))
	}

	// 转账成功：记录转账单号并完成打款单
	if err := s.completePayout(payout.ID, result.TransferID); err != nil {
		// 转账已成功，本地状态落后于处理器侧；对账回调会纠正
		logger.Logger.Error("转账成功但更新打款单失败",
			zap.Int64("payout_id", payout.ID),
			zap.String("transfer_id", result.TransferID),
			zap.Error(err))
		return fmt.Errorf("更新打款单失败: %w", err)
	}

	s.notifyService.SendStaffNotification(ctx, staffID,
		models.NotificationKindPayoutCompleted,
		"打款完成",
		fmt.Sprintf("金额 %d(%s) 已转入您的收款账户", total, currency),
		map[string]interface{}{
			"payout_no":   payout.PayoutNo,
			"amount":      total,
			"transfer_id": result.TransferID,
		})

	mq.PublishPayoutResult(ctx, &mq.PayoutResultMessage{
		PayoutID:   payout.ID,
		PayoutNo:   payout.PayoutNo,
		StaffID:    staffID,
		Amount:     total,
		Currency:   currency,
		Status:     int(models.PayoutStatusCompleted),
		TransferID: result.TransferID,
		Timestamp:  time.Now().Unix(),
	})

	logger.Logger.Info("打款完成",
		zap.Int64("staff_id", staffID),
		zap.String("payout_no", payout.PayoutNo),
		zap.String("transfer_id", result.TransferID),
		zap.Int64("amount", total))

	return nil
}

// RetryPayout 重试一笔失败的打款单
// 仅 failed 且份额仍被原单占有的打款单可重试；不重新聚合，
// 按原金额/币种/目标账户重新发起转账
func (s *PayoutSettleService) RetryPayout(ctx context.Context, payoutID int64) error {
	var payout models.Payout
	if err := database.DB.Where("id = ?", payoutID).First(&payout).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrPayoutNotFound
		}
		return fmt.Errorf("查询打款单失败: %w", err)
	}

	if payout.Status != models.PayoutStatusFailed {
		return ErrPayoutStateInvalid
	}

	// 份额已被解除占有的失败单（结算失败回滚、对账回滚）由下一轮
	// 批量结算重新打款，原单重试会对同一笔余额重复转账
	var claimed int64
	if err := database.DB.Model(&models.TipDistribution{}).
		Where("payout_id = ?", payout.ID).
		Count(&claimed).Error; err != nil {
		return fmt.Errorf("查询占有份额失败: %w", err)
	}
	if claimed == 0 {
		return ErrPayoutStateInvalid
	}

	var staff models.StaffMember
	if err := database.DB.Where("id = ?", payout.StaffID).First(&staff).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrStaffNotFound
		}
		return fmt.Errorf("查询员工失败: %w", err)
	}
	if staff.StripeAccountID == nil || *staff.StripeAccountID == "" || !staff.StripeOnboarded {
		return ErrStaffNotOnboarded
	}

	// 置回打款中并清空失败原因
	now := time.Now()
	if err := database.DB.Model(&models.Payout{}).
		Where("id = ?", payout.ID).
		Updates(map[string]interface{}{
			"status":          models.PayoutStatusProcessing,
			"failure_reason":  "",
			"update_datetime": &now,
		}).Error; err != nil {
		return fmt.Errorf("更新打款单状态失败: %w", err)
	}

	logger.Logger.Info("重试打款",
		zap.Int64("payout_id", payout.ID),
		zap.String("payout_no", payout.PayoutNo),
		zap.Int64("amount", payout.Amount))

	result, transferErr := s.transferClient.CreateTransfer(ctx, &transfer.TransferRequest{
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Destination: *staff.StripeAccountID,
		Metadata: map[string]string{
			"payout_no": payout.PayoutNo,
			"staff_id":  fmt.Sprintf("%d", payout.StaffID),
		},
		IdempotencyKey: uuid.NewString(),
	})

	if transferErr != nil {
		// 与首次结算不同：重试失败不解除份额占有，原单可以继续重试
		reason := fmt.Sprintf("重试转账失败: %v", transferErr)
		if err := database.DB.Model(&models.Payout{}).
			Where("id = ?", payout.ID).
			Updates(map[string]interface{}{
				"status":          models.PayoutStatusFailed,
				"failure_reason":  reason,
				"update_datetime": time.Now(),
			}).Error; err != nil {
			logger.Logger.Error("标记重试失败状态失败",
				zap.Int64("payout_id", payout.ID),
				zap.Error(err))
		}

		s.notifyService.SendStaffNotification(ctx, payout.StaffID,
			models.NotificationKindPayoutFailed,
			"打款失败",
			fmt.Sprintf("金额 %d(%s) 的打款重试未能完成", payout.Amount, payout.Currency),
			map[string]interface{}{
				"payout_no": payout.PayoutNo,
				"amount":    payout.Amount,
			})

		mq.PublishPayoutResult(ctx, &mq.PayoutResultMessage{
			PayoutID:      payout.ID,
			PayoutNo:      payout.PayoutNo,
			StaffID:       payout.StaffID,
			Amount:        payout.Amount,
			Currency:      payout.Currency,
			Status:        int(models.PayoutStatusFailed),
			FailureReason: transferErr.Error(),
			Timestamp:     time.Now().Unix(),
		})

		return NewPayoutError(ErrCodeTransferFailed, reason)
	}

	if err := s.completePayout(payout.ID, result.TransferID); err != nil {
		logger.Logger.Error("重试转账成功但更新打款单失败",
			zap.Int64("payout_id", payout.ID),
			zap.String("transfer_id", result.TransferID),
			zap.Error(err))
		return fmt.Errorf("更新打款单失败: %w", err)
	}

	s.notifyService.SendStaffNotification(ctx, payout.StaffID,
		models.NotificationKindPayoutCompleted,
		"打款完成",
		fmt.Sprintf("金额 %d(%s) 已转入您的收款账户", payout.Amount, payout.Currency),
		map[string]interface{}{
			"payout_no":   payout.PayoutNo,
			"amount":      payout.Amount,
			"transfer_id": result.TransferID,
		})

	mq.PublishPayoutResult(ctx, &mq.PayoutResultMessage{
		PayoutID:   payout.ID,
		PayoutNo:   payout.PayoutNo,
		StaffID:    payout.StaffID,
		Amount:     payout.Amount,
		Currency:   payout.Currency,
		Status:     int(models.PayoutStatusCompleted),
		TransferID: result.TransferID,
		Timestamp:  time.Now().Unix(),
	})

	logger.Logger.Info("重试打款完成",
		zap.Int64("payout_id", payout.ID),
		zap.String("transfer_id", result.TransferID))

	return nil
}

// completePayout 把打款单置为已完成并记录转账单号
func (s *PayoutSettleService) completePayout(payoutID int64, transferID string) error {
	now := time.Now()
	return database.DB.Model(&models.Payout{}).
		Where("id = ?", payoutID).
		Updates(map[string]interface{}{
			"status":             models.PayoutStatusCompleted,
			"stripe_transfer_id": transferID,
			"processed_at":       &now,
			"update_datetime":    &now,
		}).Error
}

// rollbackPayout 阶段B回滚：解除该打款单占有的全部份额并标记失败
// 对账回调和卡死回收任务复用同一形状的回滚
func (s *PayoutSettleService) rollbackPayout(payoutID int64, reason string) error {
	tx := database.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	now := time.Now()

	if err := tx.Model(&models.TipDistribution{}).
		Where("payout_id = ?", payoutID).
		Updates(map[string]interface{}{
			"payout_id":       nil,
			"update_datetime": &now,
		}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("解除份额占有失败: %w", err)
	}

	if err := tx.Model(&models.Payout{}).
		Where("id = ?", payoutID).
		Updates(map[string]interface{}{
			"status":          models.PayoutStatusFailed,
			"failure_reason":  reason,
			"update_datetime": &now,
		}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("标记打款单失败状态失败: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交回滚事务失败: %w", err)
	}

	return nil
}

// payoutCurrency 确定打款币种：优先酒店配置，其次全局默认
func (s *PayoutSettleService) payoutCurrency(hotelID int64) string {
	var hotel models.Hotel
	if err := database.DB.Select("currency").Where("id = ?", hotelID).First(&hotel).Error; err == nil && hotel.Currency != "" {
		return hotel.Currency
	}
	return config.Cfg.Payout.DefaultCurrency
}
