package component

import (
	"context"
	"fmt"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"mango/internal/config"
)

// NewChatModel 创建标题摘要用的 ChatModel
// 支持多种 Provider: openai, azure, ark
func NewChatModel(ctx context.Context, cfg *config.TitleConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAIChatModel(ctx, cfg)
	case "azure":
		return newAzureChatModel(ctx, cfg)
	case "ark":
		return newArkChatModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported title model provider: %s", cfg.Provider)
	}
}

// newOpenAIChatModel 创建 OpenAI ChatModel
func newOpenAIChatModel(ctx context.Context, cfg *config.TitleConfig) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
	}

	// Base URL (用于代理或兼容 API)
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	applyOptions(cfg, func(temp, topP *float32, maxTokens *int) {
		modelCfg.Temperature = temp
		modelCfg.TopP = topP
		modelCfg.MaxTokens = maxTokens
	})

	return openai.NewChatModel(ctx, modelCfg)
}

// newAzureChatModel 创建 Azure OpenAI ChatModel
func newAzureChatModel(ctx context.Context, cfg *config.TitleConfig) (model.ChatModel, error) {
	modelCfg := &openai.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		ByAzure: true,
	}

	applyOptions(cfg, func(temp, topP *float32, maxTokens *int) {
		modelCfg.Temperature = temp
		modelCfg.TopP = topP
		modelCfg.MaxTokens = maxTokens
	})

	return openai.NewChatModel(ctx, modelCfg)
}

// newArkChatModel 创建 Ark ChatModel（使用 eino-ext 模块）
func newArkChatModel(ctx context.Context, cfg *config.TitleConfig) (model.ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}

	modelCfg := &arkext.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
	}

	applyOptions(cfg, func(temp, topP *float32, maxTokens *int) {
		modelCfg.Temperature = temp
		modelCfg.TopP = topP
		modelCfg.MaxTokens = maxTokens
	})

	return arkext.NewChatModel(ctx, modelCfg)
}

// applyOptions 把配置里的可选采样参数转成指针形式
func applyOptions(cfg *config.TitleConfig, set func(temp, topP *float32, maxTokens *int)) {
	var temp, topP *float32
	var maxTokens *int

	if cfg.Options.Temperature > 0 {
		t := float32(cfg.Options.Temperature)
		temp = &t
	}
	if cfg.Options.TopP > 0 {
		p := float32(cfg.Options.TopP)
		topP = &p
	}
	if cfg.Options.MaxTokens > 0 {
		m := cfg.Options.MaxTokens
		maxTokens = &m
	}

	set(temp, topP, maxTokens)
}
