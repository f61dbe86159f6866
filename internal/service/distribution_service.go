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

// DistributeOutcome 分成结果
type DistributeOutcome int

// 分成结果常量
const (
	DistributeOutcomeDistributed        DistributeOutcome = 0 // 已分成
	DistributeOutcomeTipNotFound        DistributeOutcome = 1 // 小费不存在
	DistributeOutcomeNotSucceeded       DistributeOutcome = 2 // 小费未支付成功
	DistributeOutcomeAlreadyDistributed DistributeOutcome = 3 // 已经分成过
	DistributeOutcomeUnattributed       DistributeOutcome = 4 // 无可归因员工
)

// DistributionService 小费分成服务
// 支付成功事件触发，把一笔小费的净额拆分为每名员工的份额
type DistributionService struct{}

// NewDistributionService 创建小费分成服务
func NewDistributionService() *DistributionService {
	return &DistributionService{}
}

// DistributeTip 对一笔支付成功的小费执行分成
// 小费不存在、未成功、已分成过、无可归因员工均为无副作用返回，
// 由结果值区分；持久化错误原样向调用方传播
func (s *DistributionService) DistributeTip(ctx context.Context, tipID string) (DistributeOutcome, error) {
	// 加载小费
	var tip models.Tip
	if err := database.DB.Where("id = ?", tipID).First(&tip).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Logger.Warn("分成目标小费不存在", zap.String("tip_id", tipID))
			return DistributeOutcomeTipNotFound, nil
		}
		return DistributeOutcomeTipNotFound, fmt.Errorf("查询小费失败: %w", err)
	}

	if tip.Status != models.TipStatusSucceeded {
		logger.Logger.Warn("小费未支付成功，跳过分成",
			zap.String("tip_id", tipID),
			zap.Int("status", int(tip.Status)))
		return DistributeOutcomeNotSucceeded, nil
	}

	// 计算归因员工集合：在 [入住, 退房] 窗口内被指派到小费房间的员工
	attributed, err := s.attributedStaffIDs(&tip)
	if err != nil {
		return DistributeOutcomeUnattributed, err
	}

	if len(attributed) == 0 {
		// 无人可归因：资金保持未分配，报警由指标和日志承担
		logger.Logger.Warn("小费无可归因员工，资金保持未分配",
			zap.String("tip_id", tipID),
			zap.Int64("hotel_id", tip.HotelID),
			zap.Int64("room_id", tip.RoomID))
		unattributedTipsTotal.Inc()
		return DistributeOutcomeUnattributed, nil
	}

	// 策略分支：小费池 or 直接归因
	recipients := attributed
	var hotel models.Hotel
	if err := database.DB.Where("id = ?", tip.HotelID).First(&hotel).Error; err != nil {
		return DistributeOutcomeUnattributed, fmt.Errorf("查询酒店失败: %w", err)
	}

	if hotel.TipPoolingEnabled {
		// 池模式：收款人是酒店全体在职且加入池的员工，与归因集合无关
		// （归因集合仅用于决定这笔小费是否进入池）
		poolIDs, err := s.poolStaffIDs(tip.HotelID)
		if err != nil {
			return DistributeOutcomeUnattributed, err
		}
		if len(poolIDs) == 0 {
			logger.Logger.Warn("小费池为空，资金保持未分配",
				zap.String("tip_id", tipID),
				zap.Int64("hotel_id", tip.HotelID))
			unattributedTipsTotal.Inc()
			return DistributeOutcomeUnattributed, nil
		}
		recipients = poolIDs
	}

	// 整数拆分：perPerson 向下取整，余数给第一个收款人，保证份额之和恰好等于净额
	n := int64(len(recipients))
	perPerson := tip.NetAmount / n
	remainder := tip.NetAmount - perPerson*n

	now := time.Now()
	rows := make([]*models.TipDistribution, 0, len(recipients))
	for i, staffID := range recipients {
		amount := perPerson
		if i == 0 {
			amount += remainder
		}
		rows = append(rows, &models.TipDistribution{
			TipID:          tip.ID,
			StaffID:        staffID,
			Amount:         amount,
			PayoutID:       nil,
			CreateDatetime: &now,
		})
	}

	// 批量写入（全有或全无），并在事务内做重复分成检查
	outcome := DistributeOutcomeDistributed
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.TipDistribution{}).
			Where("tip_id = ?", tip.ID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("检查已有分成失败: %w", err)
		}
		if existing > 0 {
			outcome = DistributeOutcomeAlreadyDistributed
			return nil
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("写入分成失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return DistributeOutcomeDistributed, err
	}

	if outcome == DistributeOutcomeAlreadyDistributed {
		logger.Logger.Warn("小费已分成过，跳过", zap.String("tip_id", tipID))
		return outcome, nil
	}

	distributionsCreatedTotal.Add(float64(len(rows)))
	logger.Logger.Info("小费分成完成",
		zap.String("tip_id", tipID),
		zap.Int64("net_amount", tip.NetAmount),
		zap.Int("recipients", len(recipients)),
		zap.Bool("pooled", hotel.TipPoolingEnabled))

	return DistributeOutcomeDistributed, nil
}

// attributedStaffIDs 查询归因员工集合（去重，按员工ID稳定排序）
// 归因窗口任一端缺失时视为无法归因
func (s *DistributionService) attributedStaffIDs(tip *models.Tip) ([]int64, error) {
	if tip.CheckInDate == nil || tip.CheckOutDate == nil {
		return nil, nil
	}

	var ids []int64
	if err := database.DB.Model(&models.RoomAssignment{}).
		Distinct("staff_id").
		Where("hotel_id = ? AND room_id = ?", tip.HotelID, tip.RoomID).
		Where("assigned_date >= ? AND assigned_date <= ?", *tip.CheckInDate, *tip.CheckOutDate).
		Order("staff_id").
		Pluck("staff_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("查询排班归因失败: %w", err)
	}
	return ids, nil
}

// poolStaffIDs 查询小费池收款人集合（在职且已加入池，按员工ID稳定排序）
func (s *DistributionService) poolStaffIDs(hotelID int64) ([]int64, error) {
	var ids []int64
	if err := database.DB.Model(&models.StaffMember{}).
		Where("hotel_id = ? AND is_active = ? AND pool_opt_in = ?", hotelID, true, true).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("查询小费池成员失败: %w", err)
	}
	return ids, nil
}
