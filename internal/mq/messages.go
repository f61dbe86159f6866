package mq

// 主题常量
const (
	// TopicTipSucceeded 小费支付成功事件（支付采集侧发布，本核心消费并触发分成）
	TopicTipSucceeded = "tip-succeeded"
	// TopicPayoutResult 打款结果事件（本核心发布，下游报表/推送消费）
	TopicPayoutResult = "payout-result"
	// TopicTransferEvent 处理器转账回调事件（webhook 接入层发布，本核心消费并对账）
	TopicTransferEvent = "transfer-event"
)

// TipSucceededMessage 小费支付成功消息
type TipSucceededMessage struct {
	TipID     string `json:"tip_id"`
	TipNo     string `json:"tip_no"`
	HotelID   int64  `json:"hotel_id"`
	RoomID    int64  `json:"room_id"`
	NetAmount int64  `json:"net_amount"`
	Currency  string `json:"currency"`
	PaidAt    string `json:"paid_at"`
}

// PayoutResultMessage 打款结果消息
type PayoutResultMessage struct {
	PayoutID      int64  `json:"payout_id"`
	PayoutNo      string `json:"payout_no"`
	StaffID       int64  `json:"staff_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        int    `json:"status"`
	TransferID    string `json:"transfer_id,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// TransferEventMessage 处理器转账回调消息
type TransferEventMessage struct {
	// 事件类型：transfer.failed / transfer.reversed
	Type       string `json:"type"`
	TransferID string `json:"transfer_id"`
	ReceivedAt string `json:"received_at"`
}
