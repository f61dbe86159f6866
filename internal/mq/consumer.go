package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rocketmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/logger"
	"go.uber.org/zap"
)

// 业务处理函数由 main 在启动时注册，避免 mq 包与 service 包循环依赖
var (
	// TipSucceededHandler 小费支付成功处理函数（触发分成）
	TipSucceededHandler func(ctx context.Context, tipID string) error
	// TransferEventHandler 处理器转账回调处理函数（触发对账）
	TransferEventHandler func(ctx context.Context, eventType, transferID string) error
)

// RocketMQConsumer RocketMQ 消费者
type RocketMQConsumer struct {
	consumer rocketmq.PushConsumer
	enabled  bool
}

// NewRocketMQConsumer 创建 RocketMQ 消费者
func NewRocketMQConsumer() (*RocketMQConsumer, error) {
	cfg := config.GetConfig()

	applyRocketMQLogLevel()

	if cfg == nil || !cfg.RocketMQ.Enabled {
		logger.Logger.Info("RocketMQ 未启用，消费者不会启动")
		return &RocketMQConsumer{enabled: false}, nil
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.RocketMQ.Endpoint, cfg.RocketMQ.Port)

	creds := &credentials.SessionCredentials{
		AccessKey:    cfg.RocketMQ.AccessKey,
		AccessSecret: cfg.RocketMQ.AccessSecret,
	}

	consumerConfig := &rocketmq.Config{
		Endpoint:      endpoint,
		ConsumerGroup: cfg.RocketMQ.ConsumerGroup,
		Credentials:   creds,
	}

	listener := &rocketmq.FuncMessageListener{
		Consume: func(message *rocketmq.MessageView) rocketmq.ConsumerResult {
			ctx := context.Background()
			topic := message.GetTopic()

			var err error
			switch topic {
			case TopicTipSucceeded:
				err = handleTipSucceededMessage(ctx, message)
			case TopicTransferEvent:
				err = handleTransferEventMessage(ctx, message)
			default:
				logger.Logger.Warn("未知的主题",
					zap.String("topic", topic),
					zap.String("message_id", message.GetMessageId()))
				return rocketmq.SUCCESS
			}

			if err != nil {
				logger.Logger.Error("处理消息失败",
					zap.String("topic", topic),
					zap.String("message_id", message.GetMessageId()),
					zap.Error(err))
				// 返回成功避免无限重试；失败的分成/对账由兜底任务和人工触发补偿
				return rocketmq.SUCCESS
			}

			return rocketmq.SUCCESS
		},
	}

	var consumer rocketmq.PushConsumer
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("创建 RocketMQ 消费者时发生 panic: %v", r)
			}
		}()
		consumer, err = rocketmq.NewPushConsumer(consumerConfig,
			rocketmq.WithPushSubscriptionExpressions(map[string]*rocketmq.FilterExpression{
				TopicTipSucceeded:  rocketmq.SUB_ALL,
				TopicTransferEvent: rocketmq.SUB_ALL,
			}),
			rocketmq.WithPushMessageListener(listener),
		)
	}()

	if err != nil {
		logger.Logger.Warn("创建 RocketMQ 消费者失败，将使用同步处理",
			zap.String("endpoint", endpoint),
			zap.String("consumer_group", cfg.RocketMQ.ConsumerGroup),
			zap.Error(err))
		return &RocketMQConsumer{enabled: false}, nil
	}

	startErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("启动 RocketMQ 消费者时发生 panic: %v", r)
			}
		}()
		return consumer.Start()
	}()
	if startErr != nil {
		logger.Logger.Warn("启动 RocketMQ 消费者失败，将使用同步处理",
			zap.Error(startErr))
		return &RocketMQConsumer{enabled: false}, nil
	}

	return &RocketMQConsumer{
		consumer: consumer,
		enabled:  true,
	}, nil
}

// IsEnabled 是否启用
func (c *RocketMQConsumer) IsEnabled() bool {
	return c != nil && c.enabled
}

// Close 关闭消费者
func (c *RocketMQConsumer) Close() error {
	if c == nil || !c.enabled || c.consumer == nil {
		return nil
	}
	return c.consumer.GracefulStop()
}

// handleTipSucceededMessage 处理小费支付成功消息
func handleTipSucceededMessage(ctx context.Context, message *rocketmq.MessageView) error {
	var msg TipSucceededMessage
	if err := json.Unmarshal(message.GetBody(), &msg); err != nil {
		return fmt.Errorf("解析小费成功消息失败: %w", err)
	}

	if msg.TipID == "" {
		return fmt.Errorf("小费成功消息缺少 tip_id")
	}

	if TipSucceededHandler == nil {
		return fmt.Errorf("小费成功处理函数未注册")
	}

	start := time.Now()
	if err := TipSucceededHandler(ctx, msg.TipID); err != nil {
		return fmt.Errorf("分成处理失败 [%s]: %w", msg.TipID, err)
	}

	logger.Logger.Debug("小费成功消息处理完成",
		zap.String("tip_id", msg.TipID),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// handleTransferEventMessage 处理器转账回调消息
func handleTransferEventMessage(ctx context.Context, message *rocketmq.MessageView) error {
	var msg TransferEventMessage
	if err := json.Unmarshal(message.GetBody(), &msg); err != nil {
		return fmt.Errorf("解析转账回调消息失败: %w", err)
	}

	if msg.TransferID == "" {
		return fmt.Errorf("转账回调消息缺少 transfer_id")
	}

	if TransferEventHandler == nil {
		return fmt.Errorf("转账回调处理函数未注册")
	}

	if err := TransferEventHandler(ctx, msg.Type, msg.TransferID); err != nil {
		return fmt.Errorf("对账处理失败 [%s/%s]: %w", msg.Type, msg.TransferID, err)
	}

	return nil
}

// PublishPayoutResult 发布打款结果事件（尽力而为，失败只记日志）
func PublishPayoutResult(ctx context.Context, msg *PayoutResultMessage) {
	client := GetGlobalMQClient()
	if !client.IsEnabled() {
		return
	}

	if err := client.SendMessage(ctx, TopicPayoutResult, "result", msg); err != nil {
		logger.Logger.Warn("发布打款结果事件失败",
			zap.Int64("payout_id", msg.PayoutID),
			zap.Error(err))
	}
}
