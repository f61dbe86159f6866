package models

import (
	"time"
)

// PayoutStatus 打款单状态
type PayoutStatus int

// 打款单状态常量
const (
	PayoutStatusPending    PayoutStatus = 0 // 待处理
	PayoutStatusProcessing PayoutStatus = 1 // 打款中
	PayoutStatusCompleted  PayoutStatus = 2 // 已完成
	PayoutStatusFailed     PayoutStatus = 3 // 已失败
)

// Payout 打款单模型
// 对单个员工的一次对外转账；失败的打款单可以原单重试（同一行，不新建）
type Payout struct {
	ID               int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	PayoutNo         string       `gorm:"uniqueIndex;type:varchar(32);not null;comment:打款单号" json:"payout_no"`
	StaffID          int64        `gorm:"index;not null;comment:关联员工" json:"staff_id"`
	Amount           int64        `gorm:"not null;comment:打款金额(分)" json:"amount"`
	Currency         string       `gorm:"type:varchar(8);not null;comment:币种" json:"currency"`
	Status           PayoutStatus `gorm:"index;not null;comment:打款单状态" json:"status"`
	StripeTransferID *string      `gorm:"index;type:varchar(64);comment:Stripe转账单号" json:"stripe_transfer_id,omitempty"`
	FailureReason    string       `gorm:"type:varchar(512);comment:失败原因" json:"failure_reason,omitempty"`
	ProcessedAt      *time.Time   `gorm:"comment:完成时间" json:"processed_at,omitempty"`
	CreateDatetime   *time.Time   `gorm:"index;comment:创建时间" json:"create_datetime,omitempty"`
	UpdateDatetime   *time.Time   `gorm:"comment:修改时间" json:"update_datetime,omitempty"`
}

// TableName 指定表名
func (Payout) TableName() string {
	return "tip_payout"
}

// StaffNotification 员工通知模型
// 通知是尽力而为的旁路动作，写入失败只记日志，绝不影响主流程
type StaffNotification struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	StaffID        int64      `gorm:"index;not null;comment:关联员工" json:"staff_id"`
	Kind           string     `gorm:"type:varchar(32);not null;comment:通知类型" json:"kind"`
	Title          string     `gorm:"type:varchar(255);not null;comment:标题" json:"title"`
	Body           string     `gorm:"type:varchar(1024);comment:正文" json:"body,omitempty"`
	Metadata       string     `gorm:"type:json;comment:附加数据" json:"metadata,omitempty"`
	CreateDatetime *time.Time `gorm:"comment:创建时间" json:"create_datetime,omitempty"`
}

// TableName 指定表名
func (StaffNotification) TableName() string {
	return "tip_staff_notification"
}

// 通知类型常量
const (
	NotificationKindPayoutCompleted = "payout_completed"
	NotificationKindPayoutFailed    = "payout_failed"
)
