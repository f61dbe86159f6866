package service

import (
	"context"
	"testing"
	"time"

	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/models"
	"github.com/hotel-tip-core/internal/transfer"
	"github.com/hotel-tip-core/internal/utils"
	"github.com/stretchr/testify/assert"
)

// createProcessingPayout 创建一笔打款中的打款单及其占有的份额
func createProcessingPayout(t *testing.T, hotelID, staffID, amount int64, createdAt time.Time, transferID *string) *models.Payout {
	payout := &models.Payout{
		PayoutNo:         utils.GeneratePayoutNo(),
		StaffID:          staffID,
		Amount:           amount,
		Currency:         "usd",
		Status:           models.PayoutStatusProcessing,
		StripeTransferID: transferID,
		CreateDatetime:   &createdAt,
	}
	if err := database.DB.Create(payout).Error; err != nil {
		t.Fatalf("Failed to create payout: %v", err)
	}

	dist := createUnpaidDistribution(t, "sw"+payout.PayoutNo, hotelID, staffID, amount)
	if err := database.DB.Model(&models.TipDistribution{}).
		Where("id = ?", dist.ID).
		Update("payout_id", payout.ID).Error; err != nil {
		t.Fatalf("Failed to link distribution: %v", err)
	}
	return payout
}

// TestStalePayoutSweepService_SweepStalePayouts 测试卡死打款单回收
// 超时且无转账单号的 processing 单被回滚；有转账单号或未超时的不动
func TestStalePayoutSweepService_SweepStalePayouts(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	s1 := createTestStaff(t, hotel.ID, false)
	s2 := createTestStaff(t, hotel.ID, false)
	s3 := createTestStaff(t, hotel.ID, false)

	// 超时且无转账单号：占有事务提交后进程崩溃的遗留，应回滚
	stale := createProcessingPayout(t, hotel.ID, s1.ID, 600, time.Now().Add(-time.Hour), nil)

	// 刚创建的 processing 单：可能正在发起转账，不能动
	fresh := createProcessingPayout(t, hotel.ID, s2.ID, 700, time.Now(), nil)

	// 超时但已有转账单号：转账已发出，等对账回调处理
	sent := "tr_sent_1"
	inFlight := createProcessingPayout(t, hotel.ID, s3.ID, 800, time.Now().Add(-time.Hour), &sent)

	service := NewStalePayoutSweepService(transfer.NewMockClient())
	swept := service.SweepStalePayouts(context.Background())
	assert.Equal(t, 1, swept)

	var updated models.Payout
	assert.Nil(t, database.DB.Where("id = ?", stale.ID).First(&updated).Error)
	assert.Equal(t, models.PayoutStatusFailed, updated.Status)
	assert.NotEmpty(t, updated.FailureReason)

	// 回滚单的份额重新可结算
	var unpaid int64
	database.DB.Model(&models.TipDistribution{}).
		Where("staff_id = ? AND payout_id IS NULL", s1.ID).
		Count(&unpaid)
	assert.Equal(t, int64(1), unpaid)

	// 其余打款单保持 processing，份额保持占有
	for _, p := range []*models.Payout{fresh, inFlight} {
		var untouched models.Payout
		assert.Nil(t, database.DB.Where("id = ?", p.ID).First(&untouched).Error)
		assert.Equal(t, models.PayoutStatusProcessing, untouched.Status)

		var linked int64
		database.DB.Model(&models.TipDistribution{}).
			Where("payout_id = ?", p.ID).
			Count(&linked)
		assert.Equal(t, int64(1), linked)
	}
}

// TestStalePayoutSweepService_SweepStalePayouts_Empty 测试无卡死单
func TestStalePayoutSweepService_SweepStalePayouts_Empty(t *testing.T) {
	setupTestEnv(t)

	service := NewStalePayoutSweepService(transfer.NewMockClient())
	swept := service.SweepStalePayouts(context.Background())
	assert.Equal(t, 0, swept)
}
