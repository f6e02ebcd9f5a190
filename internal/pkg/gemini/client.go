package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"mango/internal/config"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client Gemini REST 客户端
// 封装 generateContent（阻塞）、streamGenerateContent（SSE 流式）和图片生成
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient 创建 Gemini 客户端
// 协议层面没有单次请求超时上限，保持原有行为
func NewClient(cfg *config.GeminiConfig) *Client {
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

// GenerateContent 阻塞式调用文本模型
func (c *Client) GenerateContent(ctx context.Context, model string, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	body, err := c.post(ctx, url, req)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var resp GenerateContentResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	return &resp, nil
}

// StreamGenerateContent 打开 SSE 流式通道
// 返回后调用方仅在流打开前阻塞；每个片段是原始增量文本
// 流中途出错时，最后一个片段携带 Err，随后通道关闭
func (c *Client) StreamGenerateContent(ctx context.Context, model string, req *GenerateContentRequest) (<-chan *StreamFragment, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, model, c.apiKey)

	body, err := c.post(ctx, url, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan *StreamFragment, 16)

	go func() {
		defer close(ch)
		defer body.Close()

		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					ch <- &StreamFragment{Err: fmt.Errorf("read stream: %w", err)}
				}
				return
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var resp GenerateContentResponse
			if err := json.Unmarshal([]byte(data), &resp); err != nil {
				log.Warn().Err(err).Msg("skipping malformed stream fragment")
				continue
			}

			fragment := &StreamFragment{Text: resp.Text()}
			if resp.UsageMetadata != nil {
				fragment.Usage = resp.UsageMetadata
			}
			if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
				fragment.Grounding = resp.Candidates[0].GroundingMetadata
			}

			select {
			case <-ctx.Done():
				ch <- &StreamFragment{Err: ctx.Err()}
				return
			case ch <- fragment:
			}
		}
	}()

	return ch, nil
}

// GenerateImage 调用图片模型，返回响应里的全部内联图片
func (c *Client) GenerateImage(ctx context.Context, model, prompt string) ([]InlineImage, error) {
	req := &GenerateContentRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
	}

	resp, err := c.GenerateContent(ctx, model, req)
	if err != nil {
		return nil, err
	}

	var images []InlineImage
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			images = append(images, InlineImage{
				MimeType: part.InlineData.MimeType,
				Data:     part.InlineData.Data,
			})
		}
	}

	return images, nil
}

// post 发送 JSON 请求，非 2xx 响应解析为错误
func (c *Client) post(ctx context.Context, url string, payload any) (io.ReadCloser, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini API error: status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
