package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hotel-tip-core/config"
)

// StripeClient Stripe 转账客户端
// 调用 POST /v1/transfers 创建向员工账户的转账
type StripeClient struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

// NewStripeClient 创建 Stripe 转账客户端
func NewStripeClient() *StripeClient {
	cfg := config.Cfg.Stripe

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &StripeClient{
		apiKey:  cfg.APIKey,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// stripeTransferResponse Stripe 转账接口响应
type stripeTransferResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateTransfer 创建转账
func (c *StripeClient) CreateTransfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	form.Set("destination", req.Destination)
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		c.apiBase+"/v1/transfers", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("创建转账请求失败: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("转账请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取转账响应失败: %w", err)
	}

	var result stripeTransferResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析转账响应失败 [%d]: %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return nil, fmt.Errorf("Stripe 转账被拒绝 [%s/%s]: %s",
				result.Error.Type, result.Error.Code, result.Error.Message)
		}
		return nil, fmt.Errorf("Stripe 转账失败: HTTP %d", resp.StatusCode)
	}

	if result.ID == "" {
		return nil, fmt.Errorf("Stripe 转账响应缺少转账单号")
	}

	return &TransferResult{TransferID: result.ID}, nil
}
