package ai

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mango/internal/model"
	"mango/internal/pkg/gemini"
)

// ExchangeRequest 单次发送的临时请求上下文，从不持久化
type ExchangeRequest struct {
	History           []model.Message // 已压缩的历史
	Text              string          // 当前用户文本（纯图片输入时可为空）
	Images            []string        // 当前用户附带的图片（data URI）
	SystemInstruction string
	Mode              string // preciso / criativo
}

// ExchangeResult 一次完整交换的结果
type ExchangeResult struct {
	Text           string
	Images         []string // data URI
	GroundingURLs  []model.GroundingURL
	Usage          *model.TokenUsage
	ModelName      string
	ResponseTimeMs int64
}

// profile 根据模式选择模型变体和采样参数
func (c *Client) profile(mode string) (string, *gemini.GenerationConfig) {
	maxTokens := c.cfg.MaxOutputTokens

	genCfg := &gemini.GenerationConfig{}
	if maxTokens > 0 {
		genCfg.MaxOutputTokens = &maxTokens
	}

	switch mode {
	case model.ModeCreative:
		temp, topP, topK := 0.9, 0.95, 40
		genCfg.Temperature = &temp
		genCfg.TopP = &topP
		genCfg.TopK = &topK
		return c.cfg.CreativeModel, genCfg
	default:
		// 精确模式是默认
		temp, topP, topK := 0.2, 0.8, 20
		genCfg.Temperature = &temp
		genCfg.TopP = &topP
		genCfg.TopK = &topK
		return c.cfg.PreciseModel, genCfg
	}
}

// buildRequest 把压缩历史 + 当前用户输入组装成角色标记的内容列表
// 历史消息的内联图片会重新附上，保证跨轮的视觉上下文
func (c *Client) buildRequest(req *ExchangeRequest) (*gemini.GenerateContentRequest, string) {
	modelName, genCfg := c.profile(req.Mode)

	contents := make([]gemini.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		contents = append(contents, toContent(msg.Role, msg.Text, msg.Images))
	}
	contents = append(contents, toContent(model.RoleUser, req.Text, req.Images))

	instruction := req.SystemInstruction
	if instruction == "" {
		instruction = defaultSystemInstruction
	}

	out := &gemini.GenerateContentRequest{
		Contents: contents,
		SystemInstruction: &gemini.Content{
			Parts: []gemini.Part{{Text: instruction}},
		},
		GenerationConfig: genCfg,
	}
	if c.cfg.EnableSearch {
		out.Tools = []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}}
	}

	return out, modelName
}

// toContent 单条消息转线上内容，data URI 图片转回 inlineData
func toContent(role, text string, images []string) gemini.Content {
	parts := make([]gemini.Part, 0, 1+len(images))
	if text != "" {
		parts = append(parts, gemini.Part{Text: text})
	}
	for _, img := range images {
		if inline := parseDataURI(img); inline != nil {
			parts = append(parts, gemini.Part{InlineData: inline})
		}
	}
	if len(parts) == 0 {
		parts = append(parts, gemini.Part{Text: ""})
	}
	return gemini.Content{Role: role, Parts: parts}
}

// parseDataURI 解析 data:<mime>;base64,<data>，存储引用（http URL）不内联
func parseDataURI(uri string) *gemini.InlineData {
	if !strings.HasPrefix(uri, "data:") {
		return nil
	}
	rest := strings.TrimPrefix(uri, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return nil
	}
	return &gemini.InlineData{
		MimeType: rest[:sep],
		Data:     rest[sep+len(";base64,"):],
	}
}

// Send 阻塞式交换：一次请求拿到完整回复，再做图片/引用后处理
func (c *Client) Send(ctx context.Context, req *ExchangeRequest) (*ExchangeResult, error) {
	wireReq, modelName := c.buildRequest(req)

	start := time.Now()
	resp, err := c.gemini.GenerateContent(ctx, modelName, wireReq)
	if err != nil {
		log.Error().Err(err).Str("model", modelName).Msg("gemini text call failed")
		return nil, ErrCommunication
	}

	text, images := c.postProcess(ctx, req.Text, resp.Text())

	result := &ExchangeResult{
		Text:           text,
		Images:         images,
		GroundingURLs:  extractGrounding(resp.Candidates[0].GroundingMetadata),
		ModelName:      modelName,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		result.Usage = toTokenUsage(resp.UsageMetadata)
	}

	return result, nil
}

// SendStream 流式交换
// 返回的通道上每个片段都携带累计文本（前缀单调增长）；
// 流结束后做图片/引用后处理，终止片段 Done=true 携带最终结果；
// 流中途出错时终止片段携带 Err，之前累计的文本仍然有效
func (c *Client) SendStream(ctx context.Context, req *ExchangeRequest) (<-chan *model.ChatChunk, error) {
	wireReq, modelName := c.buildRequest(req)

	start := time.Now()
	fragments, err := c.gemini.StreamGenerateContent(ctx, modelName, wireReq)
	if err != nil {
		log.Error().Err(err).Str("model", modelName).Msg("gemini stream open failed")
		return nil, ErrCommunication
	}

	out := make(chan *model.ChatChunk, 16)

	go func() {
		defer close(out)

		var accumulated strings.Builder
		var usage *gemini.UsageMetadata
		var grounding *gemini.GroundingMetadata

		for fragment := range fragments {
			if fragment.Err != nil {
				log.Error().Err(fragment.Err).Str("model", modelName).Msg("gemini stream failed")
				out <- &model.ChatChunk{Done: true, Err: ErrCommunication}
				return
			}
			if fragment.Usage != nil {
				usage = fragment.Usage
			}
			if fragment.Grounding != nil {
				grounding = fragment.Grounding
			}
			if fragment.Text == "" {
				continue
			}

			accumulated.WriteString(fragment.Text)
			out <- &model.ChatChunk{Text: accumulated.String()}
		}

		text, images := c.postProcess(ctx, req.Text, accumulated.String())

		done := &model.ChatChunk{
			Text:           text,
			Done:           true,
			Images:         images,
			GroundingURLs:  extractGrounding(grounding),
			ModelName:      modelName,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
		if usage != nil {
			done.Usage = toTokenUsage(usage)
		}
		out <- done
	}()

	return out, nil
}

// extractGrounding 提取 {title, uri} 引用，URI 为空的丢弃
func extractGrounding(meta *gemini.GroundingMetadata) []model.GroundingURL {
	if meta == nil {
		return nil
	}
	var urls []model.GroundingURL
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "Fonte"
		}
		urls = append(urls, model.GroundingURL{Title: title, URI: chunk.Web.URI})
	}
	return urls
}

func toTokenUsage(u *gemini.UsageMetadata) *model.TokenUsage {
	return &model.TokenUsage{
		PromptTokens:    u.PromptTokenCount,
		CandidateTokens: u.CandidatesTokenCount,
		TotalTokens:     u.TotalTokenCount,
	}
}
