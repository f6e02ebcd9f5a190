package gemini

// 本文件定义 generativelanguage v1beta 的请求/响应线上结构
// 响应按显式结构解析，未知形状在边界处报错而不是向上传播未定义字段

// Content 一条角色标记的内容（user/model）
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part 内容片段：文本或内联图片二选一
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData 内联二进制负载（Base64 编码）
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig 采样参数
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// Tool 工具声明，目前只用 Google Search Grounding
type Tool struct {
	GoogleSearch *GoogleSearch `json:"googleSearch,omitempty"`
}

// GoogleSearch 启用 Google 搜索
type GoogleSearch struct{}

// GenerateContentRequest generateContent / streamGenerateContent 请求体
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
}

// GenerateContentResponse generateContent 响应体（流式逐片段同形）
type GenerateContentResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Candidate 候选回复
type Candidate struct {
	Content           Content            `json:"content"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// GroundingMetadata 搜索来源元数据
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks"`
}

// GroundingChunk 单个来源
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// WebSource 网页来源
type WebSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// UsageMetadata Token 用量
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Text 拼接第一候选的全部文本片段
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var text string
	for _, part := range r.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// InlineImage 生成的内联图片
type InlineImage struct {
	MimeType string
	Data     string // Base64 编码
}

// StreamFragment 流式增量片段（原始增量，非累计）
type StreamFragment struct {
	Text      string
	Usage     *UsageMetadata
	Grounding *GroundingMetadata
	Err       error
}
