package model

import (
	"time"
)

// 消息角色
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Conversation 对话实体
// ID使用UUID格式（string），由客户端或服务端生成，便于草稿先行
type Conversation struct {
	ID                string    `bson:"_id" json:"id"`
	UserID            string    `bson:"user_id" json:"user_id"`
	Title             string    `bson:"title" json:"title"`
	Category          string    `bson:"category,omitempty" json:"category,omitempty"`
	SystemInstruction string    `bson:"system_instruction,omitempty" json:"system_instruction,omitempty"`
	Messages          []Message `bson:"messages" json:"messages"`
	LastUpdated       time.Time `bson:"last_updated" json:"last_updated"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
}

// Message 对话中的一条消息（用户或模型）
// 模型消息在流式期间原地更新，结束后冻结
type Message struct {
	ID             string         `bson:"_id" json:"id"`
	Role           string         `bson:"role" json:"role"`
	Text           string         `bson:"text" json:"text"`
	Timestamp      time.Time      `bson:"timestamp" json:"timestamp"`
	Images         []string       `bson:"images,omitempty" json:"images,omitempty"`                 // data URI 或存储引用
	GroundingURLs  []GroundingURL `bson:"grounding_urls,omitempty" json:"grounding_urls,omitempty"` // Google Search 来源
	Usage          *TokenUsage    `bson:"usage,omitempty" json:"usage,omitempty"`
	ModelName      string         `bson:"model_name,omitempty" json:"model_name,omitempty"`
	ResponseTimeMs int64          `bson:"response_time_ms,omitempty" json:"response_time_ms,omitempty"`
}

// GroundingURL 回答引用的网页来源
type GroundingURL struct {
	Title string `bson:"title" json:"title"`
	URI   string `bson:"uri" json:"uri"`
}

// TokenUsage Token 使用统计
type TokenUsage struct {
	PromptTokens    int `bson:"prompt_tokens" json:"prompt_tokens"`
	CandidateTokens int `bson:"candidate_tokens" json:"candidate_tokens"`
	TotalTokens     int `bson:"total_tokens" json:"total_tokens"`
}

// 订阅状态
const (
	SubscriptionPending = "pending"
	SubscriptionPaid    = "paid"
	SubscriptionFailed  = "failed"
)

// Subscription 订阅记录（移动支付）
type Subscription struct {
	ID            string     `bson:"_id" json:"id"`
	UserID        string     `bson:"user_id" json:"user_id"`
	PlanName      string     `bson:"plan_name" json:"plan_name"`
	Price         float64    `bson:"price" json:"price"`
	PaymentMethod string     `bson:"payment_method" json:"payment_method"` // mpesa / emola
	PhoneNumber   string     `bson:"phone_number" json:"phone_number"`
	Status        string     `bson:"status" json:"status"` // pending / paid / failed
	TransactionRef string    `bson:"transaction_reference" json:"transaction_reference"`
	GatewayRef    string     `bson:"gateway_reference,omitempty" json:"gateway_reference,omitempty"`
	ExpiresAt     *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
}

// IsActive 订阅是否已支付且未过期
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionPaid && s.ExpiresAt != nil && s.ExpiresAt.After(time.Now())
}
