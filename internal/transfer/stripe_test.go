package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newTestStripeClient 创建指向测试服务器的客户端
func newTestStripeClient(serverURL string) *StripeClient {
	return &StripeClient{
		apiKey:     "sk_test_key",
		apiBase:    serverURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// TestStripeClient_CreateTransfer_Success 测试成功转账
func TestStripeClient_CreateTransfer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-123", r.Header.Get("Idempotency-Key"))

		assert.Nil(t, r.ParseForm())
		assert.Equal(t, "600", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "acct_test", r.PostForm.Get("destination"))
		assert.Equal(t, "PO123", r.PostForm.Get("metadata[payout_no]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "tr_1ABC"}`))
	}))
	defer server.Close()

	client := newTestStripeClient(server.URL)
	result, err := client.CreateTransfer(context.Background(), &TransferRequest{
		Amount:         600,
		Currency:       "usd",
		Destination:    "acct_test",
		Metadata:       map[string]string{"payout_no": "PO123"},
		IdempotencyKey: "idem-123",
	})

	assert.Nil(t, err)
	assert.Equal(t, "tr_1ABC", result.TransferID)
}

// TestStripeClient_CreateTransfer_Rejected 测试被拒绝的转账
func TestStripeClient_CreateTransfer_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"type": "invalid_request_error", "code": "balance_insufficient", "message": "Insufficient funds"}}`))
	}))
	defer server.Close()

	client := newTestStripeClient(server.URL)
	result, err := client.CreateTransfer(context.Background(), &TransferRequest{
		Amount:      600,
		Currency:    "usd",
		Destination: "acct_test",
	})

	assert.Nil(t, result)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "balance_insufficient")
}

// TestStripeClient_CreateTransfer_MissingID 测试缺少转账单号的响应
func TestStripeClient_CreateTransfer_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestStripeClient(server.URL)
	result, err := client.CreateTransfer(context.Background(), &TransferRequest{
		Amount:      600,
		Currency:    "usd",
		Destination: "acct_test",
	})

	assert.Nil(t, result)
	assert.NotNil(t, err)
}
