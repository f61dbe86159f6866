package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	rocketmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
	"github.com/hotel-tip-core/config"
	"github.com/hotel-tip-core/internal/logger"
	"go.uber.org/zap"
)

func init() {
	// init 中不能访问 config（可能还未加载），先设置 SDK 日志默认值
	os.Setenv("mq.consoleAppender.enabled", "true")
	if os.Getenv("rocketmq.client.logLevel") == "" {
		os.Setenv("rocketmq.client.logLevel", "WARN")
	}
	rocketmq.ResetLogger()
}

// applyRocketMQLogLevel 按配置应用 RocketMQ SDK 日志级别
func applyRocketMQLogLevel() {
	cfg := config.GetConfig()
	if cfg != nil && cfg.RocketMQ.LogLevel != "" {
		if os.Getenv("rocketmq.client.logLevel") != cfg.RocketMQ.LogLevel {
			os.Setenv("rocketmq.client.logLevel", cfg.RocketMQ.LogLevel)
			rocketmq.ResetLogger()
		}
	}
}

var (
	// globalMQClient 全局生产者客户端实例（单例）
	globalMQClient     *RocketMQClient
	globalMQClientInit sync.Once
)

// RocketMQClient RocketMQ 生产者封装
type RocketMQClient struct {
	producer rocketmq.Producer
	enabled  bool
}

// GetGlobalMQClient 获取全局生产者实例（单例）
func GetGlobalMQClient() *RocketMQClient {
	globalMQClientInit.Do(func() {
		client, err := NewRocketMQClient()
		if err != nil {
			if logger.Logger != nil {
				logger.Logger.Warn("初始化全局 RocketMQ 客户端失败", zap.Error(err))
			}
			globalMQClient = &RocketMQClient{enabled: false}
		} else {
			globalMQClient = client
		}
	})
	return globalMQClient
}

// NewRocketMQClient 创建 RocketMQ 生产者
func NewRocketMQClient() (*RocketMQClient, error) {
	cfg := config.GetConfig()

	applyRocketMQLogLevel()

	if cfg == nil || !cfg.RocketMQ.Enabled {
		if logger.Logger != nil {
			logger.Logger.Info("RocketMQ 未启用，事件将使用同步处理")
		}
		return &RocketMQClient{enabled: false}, nil
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.RocketMQ.Endpoint, cfg.RocketMQ.Port)

	// SDK 要求 Credentials 不能为 nil，即使不使用 ACL
	creds := &credentials.SessionCredentials{
		AccessKey:    cfg.RocketMQ.AccessKey,
		AccessSecret: cfg.RocketMQ.AccessSecret,
	}

	producerConfig := &rocketmq.Config{
		Endpoint:    endpoint,
		Credentials: creds,
	}

	var producer rocketmq.Producer
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("创建 RocketMQ 生产者时发生 panic: %v", r)
			}
		}()
		producer, err = rocketmq.NewProducer(producerConfig,
			rocketmq.WithTopics(TopicTipSucceeded, TopicPayoutResult, TopicTransferEvent),
		)
	}()
	if err != nil {
		return nil, fmt.Errorf("创建 RocketMQ 生产者失败: %w", err)
	}

	if err := producer.Start(); err != nil {
		return nil, fmt.Errorf("启动 RocketMQ 生产者失败: %w", err)
	}

	return &RocketMQClient{
		producer: producer,
		enabled:  true,
	}, nil
}

// IsEnabled 是否启用
func (c *RocketMQClient) IsEnabled() bool {
	return c != nil && c.enabled
}

// SendMessage 发送消息（JSON 序列化）
func (c *RocketMQClient) SendMessage(ctx context.Context, topic, tag string, payload interface{}) error {
	if !c.IsEnabled() {
		return fmt.Errorf("RocketMQ 未启用")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	msg := &rocketmq.Message{
		Topic: topic,
		Body:  body,
	}
	msg.SetTag(tag)

	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.producer.Send(sendCtx, msg); err != nil {
		return fmt.Errorf("发送消息失败 [%s]: %w", topic, err)
	}

	return nil
}

// Close 关闭生产者
func (c *RocketMQClient) Close() error {
	if c == nil || !c.enabled || c.producer == nil {
		return nil
	}
	return c.producer.GracefulStop()
}
