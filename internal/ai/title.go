package ai

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"mango/internal/ai/component"
	"mango/internal/config"
)

// 标题最大长度（字符），超出时截断
const maxTitleLen = 40

// TitleChain 对话标题摘要链
// 标题只在对话的第一条用户消息时生成一次，之后不再重算
type TitleChain struct {
	chatModel einomodel.ChatModel
}

// NewTitleChain 创建标题摘要链
// API key 未配置时返回 nil，调用方回退到截断标题
func NewTitleChain(ctx context.Context, cfg *config.TitleConfig) (*TitleChain, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create title chat model: %w", err)
	}

	return &TitleChain{chatModel: chatModel}, nil
}

// Generate 从首条用户消息摘要出一个短标题
func (t *TitleChain) Generate(ctx context.Context, firstMessage string) (string, error) {
	prompt := fmt.Sprintf(
		"Gere um título curto (máximo 6 palavras, sem aspas, sem pontuação final) para uma conversa que começa com: %q",
		firstMessage,
	)

	resp, err := t.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}

	title := strings.Trim(strings.TrimSpace(resp.Content), `"'`)
	if title == "" {
		return "", fmt.Errorf("empty title from model")
	}

	return truncateTitle(title), nil
}

// FallbackTitle 摘要模型不可用时的截断标题
func FallbackTitle(firstMessage string) string {
	text := strings.TrimSpace(firstMessage)
	if text == "" {
		return "Nova Conversa"
	}
	return truncateTitle(text)
}

func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleLen {
		return text
	}
	return string(runes[:maxTitleLen-3]) + "..."
}
