package router

import (
	"github.com/gin-gonic/gin"
	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/controller"
	"github.com/hotel-tip-core/internal/middleware"
	"github.com/hotel-tip-core/internal/transfer"
)

// SetupRouter 设置路由
func SetupRouter(transferClient transfer.Client) *gin.Engine {
	// 设置运行模式
	gin.SetMode(config.Cfg.App.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": config.Cfg.App.Name,
			"version": config.Cfg.App.Version,
		})
	})

	// Prometheus 指标
	r.GET("/metrics", middleware.PrometheusHandler())

	// 处理器回调（共享密钥验签，不走 JWT）
	webhookController := controller.NewWebhookController()
	r.POST("/webhooks/stripe/transfers", webhookController.HandleTransferEvent)

	// API 路由组（运营侧，JWT 鉴权）
	api := r.Group("/api/v1")
	api.Use(middleware.Auth())
	{
		// 小费分成相关路由
		tipController := controller.NewTipController()
		tips := api.Group("/tips")
		{
			tips.POST("/:id/distribute", tipController.DistributeTip) // 手动触发分成
		}

		// 打款单相关路由
		payoutController := controller.NewPayoutController(transferClient)
		payouts := api.Group("/payouts")
		{
			payouts.POST("/process", payoutController.ProcessPayouts) // 手动触发批量结算
			payouts.POST("/:id/retry", payoutController.RetryPayout)  // 重试失败打款
			payouts.GET("", payoutController.ListPayouts)             // 打款单列表
			payouts.GET("/:id", payoutController.GetPayout)           // 打款单详情
		}
	}

	return r
}
