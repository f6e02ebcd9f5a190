package model

// ChatResponse 对话响应（阻塞模式）
type ChatResponse struct {
	ConversationID string   `json:"conversation_id"`
	Message        *Message `json:"message"`
	Title          string   `json:"title,omitempty"`      // 首条消息时生成的标题
	SaveError      string   `json:"save_error,omitempty"` // 持久化失败时的可恢复错误
}

// ChatChunk 流式对话片段
// Text 始终是累计文本（前缀单调增长），UI 直接整体替换即可
// 终止片段 Done=true，携带后处理完成的最终文本、图片与用量
type ChatChunk struct {
	Text           string         `json:"text,omitempty"`
	Done           bool           `json:"done,omitempty"`
	Images         []string       `json:"images,omitempty"`
	GroundingURLs  []GroundingURL `json:"grounding_urls,omitempty"`
	Usage          *TokenUsage    `json:"usage,omitempty"`
	ModelName      string         `json:"model_name,omitempty"`
	ResponseTimeMs int64          `json:"response_time_ms,omitempty"`
	Err            error          `json:"-"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
