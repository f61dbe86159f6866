package models

import (
	"time"
)

// TipStatus 小费状态
type TipStatus int

// 小费状态常量
const (
	TipStatusPending    TipStatus = 0 // 待支付
	TipStatusProcessing TipStatus = 1 // 支付中
	TipStatusSucceeded  TipStatus = 2 // 支付成功
	TipStatusFailed     TipStatus = 3 // 支付失败
	TipStatusRefunded   TipStatus = 4 // 已退款
)

// Tip 小费模型
// 一笔客人的打赏，由支付采集侧创建并置为成功/失败，之后只读
type Tip struct {
	ID             string     `gorm:"primaryKey;type:varchar(30);comment:小费Id" json:"id"`
	TipNo          string     `gorm:"uniqueIndex;type:varchar(32);not null;comment:本系统小费单号" json:"tip_no"`
	HotelID        int64      `gorm:"index;not null;comment:关联酒店" json:"hotel_id"`
	RoomID         int64      `gorm:"index;not null;comment:关联房间" json:"room_id"`
	Status         TipStatus  `gorm:"index;not null;comment:小费状态" json:"status"`
	TotalAmount    int64      `gorm:"not null;comment:总金额(分)" json:"total_amount"`
	PlatformFee    int64      `gorm:"not null;comment:平台手续费(分)" json:"platform_fee"`
	NetAmount      int64      `gorm:"not null;comment:净额(分)=总金额-手续费" json:"net_amount"`
	Currency       string     `gorm:"type:varchar(8);not null;comment:币种" json:"currency"`
	CheckInDate    *time.Time `gorm:"comment:入住日期" json:"check_in_date,omitempty"`
	CheckOutDate   *time.Time `gorm:"comment:退房日期" json:"check_out_date,omitempty"`
	PaidAt         *time.Time `gorm:"comment:支付时间" json:"paid_at,omitempty"`
	CreateDatetime *time.Time `gorm:"index;comment:创建时间" json:"create_datetime,omitempty"`
	UpdateDatetime *time.Time `gorm:"comment:修改时间" json:"update_datetime,omitempty"`
}

// TableName 指定表名
func (Tip) TableName() string {
	return "tip_tip"
}

// TipDistribution 小费分成模型
// 一名员工在一笔小费净额中的份额；payout_id 为空表示未结算
// 不变式：同一小费的所有分成之和 == 小费净额；payout_id 非空时
// 其指向的打款单一定不是 failed 状态
type TipDistribution struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TipID          string     `gorm:"index;type:varchar(30);not null;comment:关联小费" json:"tip_id"`
	StaffID        int64      `gorm:"index;not null;comment:关联员工" json:"staff_id"`
	Amount         int64      `gorm:"not null;comment:份额金额(分)" json:"amount"`
	PayoutID       *int64     `gorm:"index;comment:关联打款单" json:"payout_id,omitempty"`
	CreateDatetime *time.Time `gorm:"comment:创建时间" json:"create_datetime,omitempty"`
	UpdateDatetime *time.Time `gorm:"comment:修改时间" json:"update_datetime,omitempty"`
}

// TableName 指定表名
func (TipDistribution) TableName() string {
	return "tip_distribution"
}
