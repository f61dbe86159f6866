package models

import (
	"time"
)

// Hotel 酒店模型
// 本核心只读取分成策略开关，其余字段由管理后台维护
type Hotel struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string     `gorm:"type:varchar(255);not null;comment:酒店名称" json:"name"`
	TipPoolingEnabled bool      `gorm:"not null;default:false;comment:是否开启小费池" json:"tip_pooling_enabled"`
	Currency         string     `gorm:"type:varchar(8);comment:币种" json:"currency,omitempty"`
	CreateDatetime   *time.Time `gorm:"comment:创建时间" json:"create_datetime,omitempty"`
	UpdateDatetime   *time.Time `gorm:"comment:修改时间" json:"update_datetime,omitempty"`
}

// TableName 指定表名
func (Hotel) TableName() string {
	return "tip_hotel"
}

// StaffMember 员工模型
// 打款目标；stripe_account_id 与 stripe_onboarded 由入驻流程写入，本核心只读
type StaffMember struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	HotelID         int64      `gorm:"index;not null;comment:关联酒店" json:"hotel_id"`
	Name            string     `gorm:"type:varchar(255);not null;comment:姓名" json:"name"`
	IsActive        bool       `gorm:"not null;default:true;comment:是否在职" json:"is_active"`
	PoolOptIn       bool       `gorm:"not null;default:false;comment:是否加入小费池" json:"pool_opt_in"`
	StripeAccountID *string    `gorm:"type:varchar(64);comment:Stripe账户ID" json:"stripe_account_id,omitempty"`
	StripeOnboarded bool       `gorm:"not null;default:false;comment:是否完成Stripe入驻" json:"stripe_onboarded"`
	CreateDatetime  *time.Time `gorm:"comment:创建时间" json:"create_datetime,omitempty"`
	UpdateDatetime  *time.Time `gorm:"comment:修改时间" json:"update_datetime,omitempty"`
}

// TableName 指定表名
func (StaffMember) TableName() string {
	return "tip_staff_member"
}

// RoomAssignment 排班模型
// 员工在某天被指派打扫某房间；用于小费归因窗口查询
type RoomAssignment struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	HotelID        int64      `gorm:"index;not null;comment:关联酒店" json:"hotel_id"`
	RoomID         int64      `gorm:"index;not null;comment:关联房间" json:"room_id"`
	StaffID        int64      `gorm:"index;not null;comment:关联员工" json:"staff_id"`
	AssignedDate   time.Time  `gorm:"index;not null;comment:排班日期" json:"assigned_date"`
	CreateDatetime *time.Time `gorm:"comment:创建时间" json:"create_datetime,omitempty"`
}

// TableName 指定表名
func (RoomAssignment) TableName() string {
	return "tip_room_assignment"
}
