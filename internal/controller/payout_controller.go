package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hotel-tip-core/internal/models"
	"github.com/hotel-tip-core/internal/response"
	"github.com/hotel-tip-core/internal/service"
	"github.com/hotel-tip-core/internal/transfer"
)

// PayoutController 打款单控制器（运营侧）
type PayoutController struct {
	batchService  *service.PayoutBatchService
	settleService *service.PayoutSettleService
	queryService  *service.PayoutQueryService
}

// NewPayoutController 创建打款单控制器
func NewPayoutController(client transfer.Client) *PayoutController {
	return &PayoutController{
		batchService:  service.NewPayoutBatchService(client),
		settleService: service.NewPayoutSettleService(client),
		queryService:  service.NewPayoutQueryService(),
	}
}

// ProcessPayouts 手动触发一轮批量结算
// POST /api/v1/payouts/process
func (c *PayoutController) ProcessPayouts(ctx *gin.Context) {
	result := c.batchService.ProcessPayouts(ctx.Request.Context())
	response.Success(ctx, result)
}

// RetryPayout 重试一笔失败的打款单
// POST /api/v1/payouts/:id/retry
func (c *PayoutController) RetryPayout(ctx *gin.Context) {
	payoutID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		response.Fail(ctx, http.StatusBadRequest, "打款单ID格式错误")
		return
	}

	if err := c.settleService.RetryPayout(ctx.Request.Context(), payoutID); err != nil {
		if payoutErr, ok := err.(*service.PayoutError); ok {
			switch payoutErr.Code {
			case service.ErrCodePayoutNotFound:
				response.Fail(ctx, http.StatusNotFound, payoutErr.Message)
			case service.ErrCodePayoutStateInvalid:
				response.Fail(ctx, http.StatusConflict, payoutErr.Message)
			default:
				response.FailWithCode(ctx, payoutErr.Code, payoutErr.Message)
			}
			return
		}
		response.Fail(ctx, http.StatusInternalServerError, "重试打款失败")
		return
	}

	response.Success(ctx, gin.H{"payout_id": payoutID})
}

// ListPayouts 分页查询打款单
// GET /api/v1/payouts?page=1&page_size=20&status=3&staff_id=7
func (c *PayoutController) ListPayouts(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	req := &service.ListPayoutsRequest{
		Page:     page,
		PageSize: pageSize,
	}

	if statusStr := ctx.Query("status"); statusStr != "" {
		statusInt, err := strconv.Atoi(statusStr)
		if err != nil {
			response.Fail(ctx, http.StatusBadRequest, "状态参数格式错误")
			return
		}
		status := models.PayoutStatus(statusInt)
		req.Status = &status
	}

	if staffStr := ctx.Query("staff_id"); staffStr != "" {
		staffID, err := strconv.ParseInt(staffStr, 10, 64)
		if err != nil {
			response.Fail(ctx, http.StatusBadRequest, "员工ID格式错误")
			return
		}
		req.StaffID = &staffID
	}

	result, err := c.queryService.ListPayouts(req)
	if err != nil {
		response.Fail(ctx, http.StatusInternalServerError, "查询打款单失败")
		return
	}

	response.Success(ctx, result)
}

// GetPayout 查询单笔打款单
// GET /api/v1/payouts/:id
func (c *PayoutController) GetPayout(ctx *gin.Context) {
	payoutID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		response.Fail(ctx, http.StatusBadRequest, "打款单ID格式错误")
		return
	}

	payout, err := c.queryService.GetPayout(payoutID)
	if err != nil {
		if err == service.ErrPayoutNotFound {
			response.Fail(ctx, http.StatusNotFound, "打款单不存在")
			return
		}
		response.Fail(ctx, http.StatusInternalServerError, "查询打款单失败")
		return
	}

	response.Success(ctx, payout)
}
