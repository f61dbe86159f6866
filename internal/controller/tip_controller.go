package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hotel-tip-core/internal/response"
	"github.com/hotel-tip-core/internal/service"
)

// TipController 小费控制器
type TipController struct {
	distributionService *service.DistributionService
}

// NewTipController 创建小费控制器
func NewTipController() *TipController {
	return &TipController{
		distributionService: service.NewDistributionService(),
	}
}

// DistributeTip 对一笔小费执行分成（支付成功事件的手动补偿入口）
// POST /api/v1/tips/:id/distribute
func (c *TipController) DistributeTip(ctx *gin.Context) {
	tipID := ctx.Param("id")
	if tipID == "" {
		response.Fail(ctx, http.StatusBadRequest, "小费ID不能为空")
		return
	}

	outcome, err := c.distributionService.DistributeTip(ctx.Request.Context(), tipID)
	if err != nil {
		response.Fail(ctx, http.StatusInternalServerError, "小费分成失败")
		return
	}

	switch outcome {
	case service.DistributeOutcomeTipNotFound:
		response.Fail(ctx, http.StatusNotFound, "小费不存在")
	case service.DistributeOutcomeNotSucceeded:
		response.Fail(ctx, http.StatusConflict, "小费未支付成功")
	case service.DistributeOutcomeAlreadyDistributed:
		response.Success(ctx, gin.H{"tip_id": tipID, "outcome": "already_distributed"})
	case service.DistributeOutcomeUnattributed:
		response.Success(ctx, gin.H{"tip_id": tipID, "outcome": "unattributed"})
	default:
		response.Success(ctx, gin.H{"tip_id": tipID, "outcome": "distributed"})
	}
}
