package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/mq"
	"github.com/hotel-tip-core/internal/service"
	"go.uber.org/zap"
)

// WebhookController 支付处理器回调控制器
// 验签后立即 ACK，业务处理走 MQ 异步化；MQ 不可用时降级为本地协程
type WebhookController struct {
	reconcileService *service.ReconcileService
}

// NewWebhookController 创建回调控制器
func NewWebhookController() *WebhookController {
	return &WebhookController{
		reconcileService: service.NewReconcileService(),
	}
}

// transferEventRequest 处理器转账回调报文
type transferEventRequest struct {
	Type       string `json:"type" binding:"required"`
	TransferID string `json:"transfer_id" binding:"required"`
}

// HandleTransferEvent 处理器转账回调入口
// POST /webhooks/stripe/transfers
func (c *WebhookController) HandleTransferEvent(ctx *gin.Context) {
	// 共享密钥校验，失败直接拒绝
	secret := ""
	if config.Cfg != nil {
		secret = config.Cfg.Stripe.WebhookSecret
	}
	if secret == "" || ctx.GetHeader("X-Webhook-Secret") != secret {
		logger.Logger.Warn("回调验签失败",
			zap.String("remote_addr", ctx.ClientIP()))
		ctx.String(http.StatusUnauthorized, "unauthorized")
		return
	}

	var req transferEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.Logger.Warn("回调报文解析失败", zap.Error(err))
		ctx.String(http.StatusBadRequest, "bad request")
		return
	}

	switch req.Type {
	case "transfer.failed", "transfer.reversed":
	default:
		// 订阅范围外的事件直接确认，避免处理器重发
		logger.Logger.Debug("忽略订阅范围外的回调事件",
			zap.String("type", req.Type),
			zap.String("transfer_id", req.TransferID))
		ctx.String(http.StatusOK, "ok")
		return
	}

	logger.Logger.Info("收到处理器转账回调",
		zap.String("type", req.Type),
		zap.String("transfer_id", req.TransferID))

	// 先 ACK 再处理，处理器侧不会因业务耗时而超时重发
	c.dispatchTransferEvent(req.Type, req.TransferID)
	ctx.String(http.StatusOK, "ok")
}

// dispatchTransferEvent 把回调事件投递到 MQ，MQ 不可用时降级为本地异步处理
func (c *WebhookController) dispatchTransferEvent(eventType, transferID string) {
	client := mq.GetGlobalMQClient()
	if client.IsEnabled() {
		msg := &mq.TransferEventMessage{
			Type:       eventType,
			TransferID: transferID,
			ReceivedAt: time.Now().Format(time.RFC3339),
		}
		err := client.SendMessage(context.Background(), mq.TopicTransferEvent, eventType, msg)
		if err == nil {
			return
		}
		logger.Logger.Warn("投递转账回调消息失败，降级为本地处理",
			zap.String("transfer_id", transferID),
			zap.Error(err))
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Logger.Error("本地对账处理发生 panic",
					zap.String("transfer_id", transferID),
					zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var err error
		switch eventType {
		case "transfer.failed":
			err = c.reconcileService.HandleTransferFailed(ctx, transferID)
		case "transfer.reversed":
			err = c.reconcileService.HandleTransferReversed(ctx, transferID)
		}
		if err != nil {
			logger.Logger.Error("本地对账处理失败",
				zap.String("type", eventType),
				zap.String("transfer_id", transferID),
				zap.Error(err))
		}
	}()
}
