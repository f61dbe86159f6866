package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hotel-tip-core/internal/database"
	"github.com/hotel-tip-core/internal/logger"
	"github.com/hotel-tip-core/internal/models"
	"go.uber.org/zap"
)

// NotifyService 员工通知服务
// 通知是尽力而为的：任何失败只记日志，绝不向调用方返回错误
type NotifyService struct{}

// NewNotifyService 创建员工通知服务
func NewNotifyService() *NotifyService {
	return &NotifyService{}
}

// SendStaffNotification 发送员工通知
// 落库一条通知记录供推送侧消费；metadata 序列化失败时丢弃附加数据继续写入
func (s *NotifyService) SendStaffNotification(ctx context.Context, staffID int64, kind, title, body string, metadata map[string]interface{}) {
	metadataJSON := ""
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		} else {
			logger.Logger.Warn("序列化通知附加数据失败",
				zap.Int64("staff_id", staffID),
				zap.String("kind", kind),
				zap.Error(err))
		}
	}

	now := time.Now()
	notification := &models.StaffNotification{
		StaffID:        staffID,
		Kind:           kind,
		Title:          title,
		Body:           body,
		Metadata:       metadataJSON,
		CreateDatetime: &now,
	}

	if err := database.DB.Create(notification).Error; err != nil {
		logger.Logger.Warn("写入员工通知失败",
			zap.Int64("staff_id", staffID),
			zap.String("kind", kind),
			zap.Error(err))
		return
	}

	logger.Logger.Debug("员工通知已写入",
		zap.Int64("staff_id", staffID),
		zap.String("kind", kind),
		zap.Int64("notification_id", notification.ID))
}
