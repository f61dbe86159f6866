package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/models"
	"github.com/hotel-tip-core/internal/transfer"
	"go.uber.org/zap"
)

// BatchResult 批量结算结果
type BatchResult struct {
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	// 另一次批量结算正在运行时为 true（本次未执行）
	AlreadyRunning bool `json:"already_running"`
}

// PayoutBatchService 批量结算服务
// 定时任务与运营手动触发共用同一入口，通过 Redis 分布式锁互斥；
// 锁不可用时退化为单机模式，结算事务内的行锁仍保证不会重复打款
type PayoutBatchService struct {
	settleService *PayoutSettleService
}

// NewPayoutBatchService 创建批量结算服务
func NewPayoutBatchService(client transfer.Client) *PayoutBatchService {
	return &PayoutBatchService{
		settleService: NewPayoutSettleService(client),
	}
}

// staffBalance 员工未付余额聚合行
type staffBalance struct {
	StaffID int64
	Total   int64
}

// ProcessPayouts 执行一轮批量结算
// 本函数自身从不返回错误：单员工结算错误只计入 Failed 并记日志
func (s *PayoutBatchService) ProcessPayouts(ctx context.Context) BatchResult {
	result := BatchResult{}

	// 分布式锁：避免定时任务与手动触发并发扫描同一批未付份额
	lockKey := "lock:payout_batch"
	lockTTL := 10 * time.Minute

	acquired, err := acquireDistributedLock(ctx, lockKey, lockTTL)
	if err != nil {
		// Redis 不可用时记录警告并继续执行（单机模式）
		logger.Logger.Warn("获取批量结算锁失败，继续执行（Redis可能不可用）",
			zap.String("lock_key", lockKey),
			zap.Error(err))
	} else if !acquired {
		logger.Logger.Info("批量结算正在其他实例执行，跳过此次运行",
			zap.String("lock_key", lockKey))
		result.AlreadyRunning = true
		return result
	} else {
		defer func() {
			if err := releaseDistributedLock(ctx, lockKey); err != nil {
				logger.Logger.Warn("释放批量结算锁失败",
					zap.String("lock_key", lockKey),
					zap.Error(err))
			}
		}()
	}

	payoutBatchRunsTotal.Inc()
	minAmount := config.Cfg.Payout.MinPayoutAmount

	// 聚合每名员工的未付余额（payout_id 为空且小费支付成功）
	var balances []staffBalance
	if err := database.DB.Model(&models.TipDistribution{}).
		Select("tip_distribution.staff_id as staff_id, SUM(tip_distribution.amount) as total").
		Joins("JOIN tip_tip ON tip_tip.id = tip_distribution.tip_id").
		Where("tip_distribution.payout_id IS NULL").
		Where("tip_tip.status = ?", models.TipStatusSucceeded).
		Group("tip_distribution.staff_id").
		Order("tip_distribution.staff_id").
		Scan(&balances).Error; err != nil {
		logger.Logger.Error("聚合未付余额失败", zap.Error(err))
		return result
	}

	for _, b := range balances {
		// 低于门槛的余额滚动到下一轮
		if b.Total < minAmount {
			result.Skipped++
			payoutSettleTotal.WithLabelValues("skipped").Inc()
			continue
		}

		if err := s.settleService.SettleStaff(ctx, b.StaffID); err != nil {
			result.Failed++
			payoutSettleTotal.WithLabelValues("failed").Inc()
			logger.Logger.Error("员工结算失败",
				zap.Int64("staff_id", b.StaffID),
				zap.Int64("balance", b.Total),
				zap.Error(err))
			continue
		}

		result.Processed++
		payoutSettleTotal.WithLabelValues("processed").Inc()
	}

	logger.Logger.Info("批量结算完成",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))

	return result
}

// acquireDistributedLock 获取分布式锁（使用 Redis SET NX EX）
func acquireDistributedLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if database.RDB == nil {
		return false, fmt.Errorf("Redis 未初始化")
	}

	result, err := database.RDB.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取分布式锁失败: %w", err)
	}

	return result, nil
}

// releaseDistributedLock 释放分布式锁
func releaseDistributedLock(ctx context.Context, key string) error {
	if database.RDB == nil {
		return fmt.Errorf("Redis 未初始化")
	}

	_, err := database.RDB.Del(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("释放分布式锁失败: %w", err)
	}

	return nil
}
