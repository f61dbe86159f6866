package transfer

import (
	"context"
)

// TransferRequest 转账请求
type TransferRequest struct {
	// 金额（分）
	Amount int64
	// 币种
	Currency string
	// 目标账户（Stripe connected account）
	Destination string
	// 附加元数据，随转账写入处理器侧（payout_no / staff_id）
	Metadata map[string]string
	// 幂等键，同一打款尝试重复提交不会重复转账
	IdempotencyKey string
}

// TransferResult 转账结果
type TransferResult struct {
	// 处理器侧转账单号
	TransferID string
}

// Client 支付处理器转账客户端接口
// 同步失败（返回 error）表示立即拒绝；成功后处理器仍可能
// 异步推送 transfer.failed / transfer.reversed 事件
type Client interface {
	CreateTransfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)
}
