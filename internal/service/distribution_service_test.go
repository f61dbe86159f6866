package service

import (
	"context"
	"testing"
	"time"

	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB 设置测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// 自动迁移
	err = db.AutoMigrate(
		&models.Hotel{},
		&models.StaffMember{},
		&models.RoomAssignment{},
		&models.Tip{},
		&models.TipDistribution{},
		&models.Payout{},
		&models.StaffNotification{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// setupTestEnv 把全局数据库/日志/配置切换为测试夹具，测试结束后恢复
func setupTestEnv(t *testing.T) {
	db := setupTestDB(t)

	originalDB := database.DB
	originalLogger := logger.Logger
	originalCfg := config.Cfg

	database.DB = db
	logger.Logger = zap.NewNop()
	config.Cfg = &config.Config{
		Payout: config.PayoutConfig{
			MinPayoutAmount: 500,
			SettleInterval:  time.Hour,
			StaleTimeout:    30 * time.Minute,
			PayoutPrefix:    "PO",
			DefaultCurrency: "usd",
		},
	}

	t.Cleanup(func() {
		database.DB = originalDB
		logger.Logger = originalLogger
		config.Cfg = originalCfg
	})
}

// date 构造日期（零点）
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// createTestHotel 创建测试酒店
func createTestHotel(t *testing.T, pooling bool) *models.Hotel {
	hotel := &models.Hotel{
		Name:              "测试酒店",
		TipPoolingEnabled: pooling,
		Currency:          "usd",
	}
	if err := database.DB.Create(hotel).Error; err != nil {
		t.Fatalf("Failed to create hotel: %v", err)
	}
	return hotel
}

// createTestStaff 创建测试员工（默认在职、已入驻）
func createTestStaff(t *testing.T, hotelID int64, poolOptIn bool) *models.StaffMember {
	account := "acct_test"
	staff := &models.StaffMember{
		HotelID:         hotelID,
		Name:            "测试员工",
		IsActive:        true,
		PoolOptIn:       poolOptIn,
		StripeAccountID: &account,
		StripeOnboarded: true,
	}
	if err := database.DB.Create(staff).Error; err != nil {
		t.Fatalf("Failed to create staff: %v", err)
	}
	return staff
}

// createTestTip 创建支付成功的测试小费
func createTestTip(t *testing.T, id string, hotelID, roomID, netAmount int64, checkIn, checkOut time.Time) *models.Tip {
	now := time.Now()
	tip := &models.Tip{
		ID:           id,
		TipNo:        "TIP" + id,
		HotelID:      hotelID,
		RoomID:       roomID,
		Status:       models.TipStatusSucceeded,
		TotalAmount:  netAmount,
		PlatformFee:  0,
		NetAmount:    netAmount,
		Currency:     "usd",
		CheckInDate:  &checkIn,
		CheckOutDate: &checkOut,
		PaidAt:       &now,
	}
	if err := database.DB.Create(tip).Error; err != nil {
		t.Fatalf("Failed to create tip: %v", err)
	}
	return tip
}

// assignRoom 创建排班记录
func assignRoom(t *testing.T, hotelID, roomID, staffID int64, day time.Time) {
	assignment := &models.RoomAssignment{
		HotelID:      hotelID,
		RoomID:       roomID,
		StaffID:      staffID,
		AssignedDate: day,
	}
	if err := database.DB.Create(assignment).Error; err != nil {
		t.Fatalf("Failed to create room assignment: %v", err)
	}
}

// TestDistributionService_DistributeTip_RemainderConservation 测试余数守恒
// 100 分 3 人：34/33/33，份额之和恰好等于净额，余数给第一个收款人
func TestDistributionService_DistributeTip_RemainderConservation(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	s1 := createTestStaff(t, hotel.ID, false)
	s2 := createTestStaff(t, hotel.ID, false)
	s3 := createTestStaff(t, hotel.ID, false)

	checkIn := date(2026, 3, 1)
	checkOut := date(2026, 3, 3)
	tip := createTestTip(t, "t100", hotel.ID, 501, 100, checkIn, checkOut)

	assignRoom(t, hotel.ID, 501, s1.ID, date(2026, 3, 1))
	assignRoom(t, hotel.ID, 501, s2.ID, date(2026, 3, 2))
	assignRoom(t, hotel.ID, 501, s3.ID, date(2026, 3, 3))

	service := NewDistributionService()
	outcome, err := service.DistributeTip(context.Background(), tip.ID)

	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeDistributed, outcome)

	var rows []models.TipDistribution
	err = database.DB.Where("tip_id = ?", tip.ID).Order("staff_id").Find(&rows).Error
	assert.Nil(t, err)
	assert.Len(t, rows, 3)

	var sum int64
	for _, row := range rows {
		sum += row.Amount
		assert.Nil(t, row.PayoutID)
	}
	assert.Equal(t, int64(100), sum)
	assert.Equal(t, int64(34), rows[0].Amount)
	assert.Equal(t, int64(33), rows[1].Amount)
	assert.Equal(t, int64(33), rows[2].Amount)
}

// TestDistributionService_DistributeTip_EvenSplit 测试整除拆分
func TestDistributionService_DistributeTip_EvenSplit(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	s1 := createTestStaff(t, hotel.ID, false)
	s2 := createTestStaff(t, hotel.ID, false)

	tip := createTestTip(t, "t900", hotel.ID, 502, 900, date(2026, 3, 1), date(2026, 3, 2))
	assignRoom(t, hotel.ID, 502, s1.ID, date(2026, 3, 1))
	assignRoom(t, hotel.ID, 502, s2.ID, date(2026, 3, 2))

	service := NewDistributionService()
	outcome, err := service.DistributeTip(context.Background(), tip.ID)

	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeDistributed, outcome)

	var rows []models.TipDistribution
	database.DB.Where("tip_id = ?", tip.ID).Find(&rows)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(450), rows[0].Amount)
	assert.Equal(t, int64(450), rows[1].Amount)
}

// TestDistributionService_DistributeTip_Pooled 测试小费池模式
// 开启小费池时收款人是全体在职且加入池的员工，与归因集合无关
func TestDistributionService_DistributeTip_Pooled(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, true)
	attributed := createTestStaff(t, hotel.ID, true)
	poolOnly := createTestStaff(t, hotel.ID, true)
	// 未加入池的员工不参与分成
	createTestStaff(t, hotel.ID, false)

	tip := createTestTip(t, "tpool", hotel.ID, 503, 600, date(2026, 3, 1), date(2026, 3, 2))
	assignRoom(t, hotel.ID, 503, attributed.ID, date(2026, 3, 1))

	service := NewDistributionService()
	outcome, err := service.DistributeTip(context.Background(), tip.ID)

	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeDistributed, outcome)

	var rows []models.TipDistribution
	database.DB.Where("tip_id = ?", tip.ID).Order("staff_id").Find(&rows)
	assert.Len(t, rows, 2)
	assert.Equal(t, attributed.ID, rows[0].StaffID)
	assert.Equal(t, poolOnly.ID, rows[1].StaffID)
	assert.Equal(t, int64(300), rows[0].Amount)
	assert.Equal(t, int64(300), rows[1].Amount)
}

// TestDistributionService_DistributeTip_Unattributed 测试无可归因员工
// 归因窗口内没有排班记录时资金保持未分配
func TestDistributionService_DistributeTip_Unattributed(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	staff := createTestStaff(t, hotel.ID, false)

	tip := createTestTip(t, "tnone", hotel.ID, 504, 100, date(2026, 3, 1), date(2026, 3, 2))
	// 窗口外的排班不参与归因
	assignRoom(t, hotel.ID, 504, staff.ID, date(2026, 3, 10))

	service := NewDistributionService()
	outcome, err := service.DistributeTip(context.Background(), tip.ID)

	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeUnattributed, outcome)

	var count int64
	database.DB.Model(&models.TipDistribution{}).Where("tip_id = ?", tip.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

// TestDistributionService_DistributeTip_MissingStayWindow 测试缺失入住窗口
func TestDistributionService_DistributeTip_MissingStayWindow(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	now := time.Now()
	tip := &models.Tip{
		ID:        "tnowin",
		TipNo:     "TIPtnowin",
		HotelID:   hotel.ID,
		RoomID:    505,
		Status:    models.TipStatusSucceeded,
		NetAmount: 100,
		Currency:  "usd",
		PaidAt:    &now,
	}
	assert.Nil(t, database.DB.Create(tip).Error)

	service := NewDistributionService()
	outcome, err := service.DistributeTip(context.Background(), tip.ID)

	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeUnattributed, outcome)
}

// TestDistributionService_DistributeTip_NotSucceeded 测试未支付成功的小费
func TestDistributionService_DistributeTip_NotSucceeded(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	checkIn := date(2026, 3, 1)
	checkOut := date(2026, 3, 2)
	tip := &models.Tip{
		ID:           "tpending",
		TipNo:        "TIPtpending",
		HotelID:      hotel.ID,
		RoomID:       506,
		Status:       models.TipStatusPending,
		NetAmount:    100,
		Currency:     "usd",
		CheckInDate:  &checkIn,
		CheckOutDate: &checkOut,
	}
	assert.Nil(t, database.DB.Create(tip).Error)

	service := NewDistributionService()
	outcome, err := service.DistributeTip(context.Background(), tip.ID)

	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeNotSucceeded, outcome)
}

// TestDistributionService_DistributeTip_TipNotFound 测试小费不存在
func TestDistributionService_DistributeTip_TipNotFound(t *testing.T) {
	setupTestEnv(t)

	service := NewDistributionService()
	outcome, err := service.DistributeTip(context.Background(), "no_such_tip")

	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeTipNotFound, outcome)
}

// TestDistributionService_DistributeTip_AlreadyDistributed 测试重复分成
// 重复触发（消息重投、手动补偿）不会产生第二组份额
func TestDistributionService_DistributeTip_AlreadyDistributed(t *testing.T) {
	setupTestEnv(t)

	hotel := createTestHotel(t, false)
	staff := createTestStaff(t, hotel.ID, false)

	tip := createTestTip(t, "tdup", hotel.ID, 507, 200, date(2026, 3, 1), date(2026, 3, 2))
	assignRoom(t, hotel.ID, 507, staff.ID, date(2026, 3, 1))

	service := NewDistributionService()
	ctx := context.Background()

	outcome, err := service.DistributeTip(ctx, tip.ID)
	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeDistributed, outcome)

	outcome, err = service.DistributeTip(ctx, tip.ID)
	assert.Nil(t, err)
	assert.Equal(t, DistributeOutcomeAlreadyDistributed, outcome)

	var count int64
	database.DB.Model(&models.TipDistribution{}).Where("tip_id = ?", tip.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}
