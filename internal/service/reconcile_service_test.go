package service

import (
	"context"
	"testing"
	"time"

	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/models"
	"github.com/hotel-tip-core/internal/utils"
	"github.com/stretchr/testify/assert"
)

// createCompletedPayout 创建一笔已完成的打款单及其占有的份额
func createCompletedPayout(t *testing.T, hotelID, staffID, amount int64, transferID string) *models.Payout {
	now := time.Now()
	payout := &models.Payout{
		PayoutNo:         utils.GeneratePayoutNo(),
		StaffID:          staffID,
		Amount:           amount,
		Currency:         "usd",
		Status:           models.PayoutStatusCompleted,
		StripeTransferID: &transferID,
		ProcessedAt:      &now,
	}
	if err := database.DB.Create(payout).Error; err != nil {
		t.Fatalf("Failed to create payout: %v", err)
	}

	dist := createUnpaidDistribution(t, "tr"+payout.PayoutNo, hotelID, staffID, amount)
	if err := database.DB.Model(&models.TipDistribution{}).
		Where("id = ?", dist.ID).
		Update("payout_id", payout.ID).Error; err != nil {
		t.Fatalf("Failed to link distribution: %v", err)
	}
	return payout
}

// TestReconcileService_TransferFailed_UnwindsPayout 测试失败回调回滚已完成打款单
func TestReconcileService_TransferFailed_UnwindsPayout(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	staff := createTestStaff(t, hotel.ID, false)
	payout := createCompletedPayout(t, hotel.ID, staff.ID, 600, "tr_failed_1")

	service := NewReconcileService()
	err := service.HandleTransferFailed(context.Background(), "tr_failed_1")
	assert.Nil(t, err)

	var updated models.Payout
	assert.Nil(t, database.DB.Where("id = ?", payout.ID).First(&updated).Error)
	assert.Equal(t, models.PayoutStatusFailed, updated.Status)
	assert.NotEmpty(t, updated.FailureReason)
	assert.Nil(t, updated.ProcessedAt)

	// 份额解除占有，回到可结算集合
	var unpaid int64
	database.DB.Model(&models.TipDistribution{}).
		Where("staff_id = ? AND payout_id IS NULL", staff.ID).
		Count(&unpaid)
	assert.Equal(t, int64(1), unpaid)

	// 员工收到打款被撤销的通知
	var notification models.StaffNotification
	assert.Nil(t, database.DB.Where("staff_id = ?", staff.ID).First(&notification).Error)
	assert.Equal(t, models.NotificationKindPayoutFailed, notification.Kind)
}

// TestReconcileService_TransferReversed_UnwindsPayout 测试冲正回调
func TestReconcileService_TransferReversed_UnwindsPayout(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	staff := createTestStaff(t, hotel.ID, false)
	payout := createCompletedPayout(t, hotel.ID, staff.ID, 600, "tr_reversed_1")

	service := NewReconcileService()
	err := service.HandleTransferReversed(context.Background(), "tr_reversed_1")
	assert.Nil(t, err)

	var updated models.Payout
	assert.Nil(t, database.DB.Where("id = ?", payout.ID).First(&updated).Error)
	assert.Equal(t, models.PayoutStatusFailed, updated.Status)
}

// TestReconcileService_DuplicateCallback_Idempotent 测试重复回调幂等
func TestReconcileService_DuplicateCallback_Idempotent(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	staff := createTestStaff(t, hotel.ID, false)
	payout := createCompletedPayout(t, hotel.ID, staff.ID, 600, "tr_dup_1")

	service := NewReconcileService()
	ctx := context.Background()

	assert.Nil(t, service.HandleTransferFailed(ctx, "tr_dup_1"))
	assert.Nil(t, service.HandleTransferFailed(ctx, "tr_dup_1"))

	var updated models.Payout
	assert.Nil(t, database.DB.Where("id = ?", payout.ID).First(&updated).Error)
	assert.Equal(t, models.PayoutStatusFailed, updated.Status)

	// 重复回调不会产生第二条通知
	var notifications int64
	database.DB.Model(&models.StaffNotification{}).Where("staff_id = ?", staff.ID).Count(&notifications)
	assert.Equal(t, int64(1), notifications)
}

// TestReconcileService_UnknownTransfer_NoOp 测试未知转账单号
// 不属于本系统的回调是良性无操作
func TestReconcileService_UnknownTransfer_NoOp(t *testing.T) {
	setupTestEnv(t)

	service := NewReconcileService()
	err := service.HandleTransferFailed(context.Background(), "tr_unknown")
	assert.Nil(t, err)

	var payoutCount int64
	database.DB.Model(&models.Payout{}).Count(&payoutCount)
	assert.Equal(t, int64(0), payoutCount)
}
