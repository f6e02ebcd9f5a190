package model

// 生成模式
const (
	ModePrecise  = "preciso"
	ModeCreative = "criativo"
)

// ChatRequest 对话请求
// Text 可以为空（纯图片输入），但 Text 和 Images 不能同时为空
type ChatRequest struct {
	Text              string   `json:"text"`
	Images            []string `json:"images,omitempty"` // base64 data URI（随消息上传的图片）
	ConversationID    string   `json:"conversation_id,omitempty"`
	Category          string   `json:"category,omitempty"`
	SystemInstruction string   `json:"system_instruction,omitempty"`
	Mode              string   `json:"mode,omitempty"` // preciso / criativo
}

// CreateConversationRequest 创建对话请求
type CreateConversationRequest struct {
	Title             string `json:"title,omitempty"`
	Category          string `json:"category,omitempty"`
	SystemInstruction string `json:"system_instruction,omitempty"`
}

// SubscribeRequest 发起订阅请求
type SubscribeRequest struct {
	PlanName      string  `json:"plan_name" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
	PhoneNumber   string  `json:"phone_number" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"` // mpesa / emola
}
