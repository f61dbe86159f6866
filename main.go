package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/mq"
	"github.com/hotel-tip-core/internal/router"
	"github.com/hotel-tip-core/internal/service"
	"github.com/hotel-tip-core/internal/transfer"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	// 支持通过环境变量 APP_ENV 或命令行参数指定环境
	// 环境变量优先级: 命令行参数 > 环境变量 APP_ENV > 默认 dev
	configPath := ""
	if len(os.Args) > 1 {
		// 支持命令行参数: ./app --config=config/config.prod.yaml
		// 或: ./app prod (自动选择 config.prod.yaml)
		arg := os.Args[1]
		if arg == "prod" || arg == "production" {
			configPath = "config/config.prod.yaml"
		} else if arg == "test" || arg == "testing" {
			configPath = "config/config.test.yaml"
		} else if arg == "dev" || arg == "development" {
			configPath = "config/config.yaml"
		} else if len(arg) > 0 && arg[0] != '-' {
			// 如果参数不是以 - 开头，可能是配置文件路径
			configPath = arg
		}
	}

	if err := config.Load(configPath); err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	// 初始化日志
	if err := logger.InitLogger(); err != nil {
		panic(fmt.Sprintf("初始化日志失败: %v", err))
	}
	defer logger.Sync()

	// 初始化数据库
	if err := database.InitMySQL(); err != nil {
		logger.Logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.CloseMySQL()

	// 初始化 Redis
	if err := database.InitRedis(); err != nil {
		logger.Logger.Warn("初始化 Redis 失败", zap.Error(err))
		// Redis 不是必须的，批量结算锁会降级为单实例模式
	}
	defer database.CloseRedis()

	// 选择转账客户端：mock 模式用于本地联调，不触达真实处理器
	var transferClient transfer.Client
	if config.Cfg.Stripe.Mock {
		logger.Logger.Warn("Stripe 转账运行在 mock 模式，不会发起真实转账")
		transferClient = transfer.NewMockClient()
	} else {
		transferClient = transfer.NewStripeClient()
	}

	// 注册 MQ 业务处理函数（main 统一装配，避免包循环依赖）
	distributionService := service.NewDistributionService()
	reconcileService := service.NewReconcileService()
	mq.TipSucceededHandler = func(ctx context.Context, tipID string) error {
		_, err := distributionService.DistributeTip(ctx, tipID)
		return err
	}
	mq.TransferEventHandler = func(ctx context.Context, eventType, transferID string) error {
		switch eventType {
		case "transfer.failed":
			return reconcileService.HandleTransferFailed(ctx, transferID)
		case "transfer.reversed":
			return reconcileService.HandleTransferReversed(ctx, transferID)
		default:
			logger.Logger.Warn("忽略未知的转账回调事件类型",
				zap.String("type", eventType),
				zap.String("transfer_id", transferID))
			return nil
		}
	}

	backgroundCtx := context.Background()

	// 启动打款结算定时服务（按配置周期批量结算）
	scheduleService := service.NewPayoutScheduleService(transferClient)
	go scheduleService.Start(backgroundCtx)
	logger.Logger.Info("打款结算定时服务已启动",
		zap.Duration("interval", config.Cfg.Payout.SettleInterval))

	// 启动滞留打款单回收服务（回滚宕机窗口遗留的处理中打款单）
	sweepService := service.NewStalePayoutSweepService(transferClient)
	go sweepService.Start(backgroundCtx)
	logger.Logger.Info("滞留打款单回收服务已启动",
		zap.Duration("stale_timeout", config.Cfg.Payout.StaleTimeout))

	// 初始化全局 RocketMQ 生产者客户端（单例模式，避免重复创建）
	mqProducer := mq.GetGlobalMQClient()
	if mqProducer.IsEnabled() {
		logger.Logger.Info("RocketMQ 生产者已启动")
		defer func() {
			if err := mqProducer.Close(); err != nil {
				logger.Logger.Error("关闭 RocketMQ 生产者失败", zap.Error(err))
			}
		}()
	}

	// 初始化 RocketMQ 消费者（如果启用）
	mqConsumer, err := mq.NewRocketMQConsumer()
	if err != nil {
		logger.Logger.Warn("初始化 RocketMQ 消费者失败",
			zap.Error(err))
	} else if mqConsumer.IsEnabled() {
		logger.Logger.Info("RocketMQ 消费者已启动")
		defer func() {
			if err := mqConsumer.Close(); err != nil {
				logger.Logger.Error("关闭 RocketMQ 消费者失败", zap.Error(err))
			}
		}()
	}

	// 设置路由
	r := router.SetupRouter(transferClient)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", config.Cfg.App.Port),
		Handler:        r,
		ReadTimeout:    config.Cfg.App.ReadTimeout,
		WriteTimeout:   config.Cfg.App.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// 启动服务器（在 goroutine 中）
	go func() {
		logger.Logger.Info("服务器启动",
			zap.String("address", srv.Addr),
			zap.String("mode", config.Cfg.App.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("正在关闭服务器...")

	scheduleService.Stop()
	sweepService.Stop()

	// 设置 5 秒超时关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Fatal("服务器强制关闭", zap.Error(err))
	}

	logger.Logger.Info("服务器已关闭")
}
