package debito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mango/internal/config"
)

const defaultBaseURL = "https://api.debito.co.mz/v1"

// Client Debito 移动支付网关客户端（莫桑比克 C2B）
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient 创建网关客户端
func NewClient(cfg *config.BillingConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// C2BRequest C2B 扣款请求
type C2BRequest struct {
	Number    string `json:"number"`
	Amount    int    `json:"amount"`
	Method    string `json:"method"` // mpesa / emola
	Reference string `json:"reference"`
}

// C2BResponse C2B 扣款响应
type C2BResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// Charge 发起 C2B 扣款（STK push 到用户手机）
func (c *Client) Charge(ctx context.Context, req *C2BRequest) (*C2BResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/c2b", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gatewayErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &gatewayErr); err == nil {
			if gatewayErr.Message != "" {
				return nil, fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, gatewayErr.Message)
			}
			if gatewayErr.Error != "" {
				return nil, fmt.Errorf("gateway error (status %d): %s", resp.StatusCode, gatewayErr.Error)
			}
		}
		return nil, fmt.Errorf("gateway error: status %d", resp.StatusCode)
	}

	var out C2BResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	return &out, nil
}
