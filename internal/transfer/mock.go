package transfer

import (
	"context"
	"fmt"
	"sync"
)

// MockClient 模拟转账客户端
// 用于测试和本地开发（stripe.mock=true），不调用真实 Stripe
type MockClient struct {
	mu sync.Mutex
	// FailWith 非 nil 时所有转账返回该错误
	FailWith error
	// Calls 记录所有收到的转账请求
	Calls []*TransferRequest

	seq int
}

// NewMockClient 创建模拟转账客户端
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateTransfer 创建转账（模拟）
func (c *MockClient) CreateTransfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, req)

	if c.FailWith != nil {
		return nil, c.FailWith
	}

	c.seq++
	return &TransferResult{
		TransferID: fmt.Sprintf("tr_mock_%06d", c.seq),
	}, nil
}
