package service

import (
	"fmt"

	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/models"
	"gorm.io/gorm"
)

// PayoutQueryService 打款单查询服务（运营侧只读）
type PayoutQueryService struct{}

// NewPayoutQueryService 创建打款单查询服务
func NewPayoutQueryService() *PayoutQueryService {
	return &PayoutQueryService{}
}

// ListPayoutsRequest 打款单列表查询参数
type ListPayoutsRequest struct {
	Page     int
	PageSize int
	// Status 为 nil 时不过滤状态
	Status *models.PayoutStatus
	// StaffID 为 nil 时不过滤员工
	StaffID *int64
}

// ListPayoutsResponse 打款单列表
type ListPayoutsResponse struct {
	Total int64           `json:"total"`
	Items []models.Payout `json:"items"`
}

// ListPayouts 分页查询打款单
func (s *PayoutQueryService) ListPayouts(req *ListPayoutsRequest) (*ListPayoutsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := database.DB.Model(&models.Payout{})
	if req.Status != nil {
		query = query.Where("status = ?", *req.Status)
	}
	if req.StaffID != nil {
		query = query.Where("staff_id = ?", *req.StaffID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计打款单失败: %w", err)
	}

	var items []models.Payout
	if err := query.
		Order("create_datetime DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("查询打款单失败: %w", err)
	}

	return &ListPayoutsResponse{Total: total, Items: items}, nil
}

// GetPayout 按ID查询单笔打款单
func (s *PayoutQueryService) GetPayout(payoutID int64) (*models.Payout, error) {
	var payout models.Payout
	if err := database.DB.Where("id = ?", payoutID).First(&payout).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("查询打款单失败: %w", err)
	}
	return &payout, nil
}
