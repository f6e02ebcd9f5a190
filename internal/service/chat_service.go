package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mango/internal/ai"
	"mango/internal/model"
	"mango/internal/pkg/id"
	"mango/internal/pkg/storage"
	"mango/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversa não encontrada")
	ErrEmptyMessage         = errors.New("a mensagem não pode estar vazia")
)

// ChatService 对话编排服务
// 负责会话加载、历史压缩、AI 调用、标题生成和持久化
type ChatService struct {
	convRepo   *repository.ConversationRepo
	aiClient   *ai.Client
	titleChain *ai.TitleChain  // 可为 nil，回退到本地截断标题
	store      storage.Storage // 可为 nil，生成的图片保持 data URI
}

// NewChatService 创建对话服务
func NewChatService(convRepo *repository.ConversationRepo, aiClient *ai.Client, titleChain *ai.TitleChain, store storage.Storage) *ChatService {
	return &ChatService{
		convRepo:   convRepo,
		aiClient:   aiClient,
		titleChain: titleChain,
		store:      store,
	}
}

// exchange 一次对话的工作上下文
type exchange struct {
	conv    *model.Conversation
	isNew   bool
	userMsg model.Message
	titleCh <-chan string // 新会话才有
}

// prepare 加载或创建会话，追加用户消息之前的校验也在这里
func (s *ChatService) prepare(ctx context.Context, userID string, req *model.ChatRequest) (*exchange, error) {
	if strings.TrimSpace(req.Text) == "" && len(req.Images) == 0 {
		return nil, ErrEmptyMessage
	}

	ex := &exchange{}

	if req.ConversationID != "" {
		conv, err := s.convRepo.FindByID(ctx, req.ConversationID, userID)
		if err != nil {
			return nil, ErrConversationNotFound
		}
		ex.conv = conv
	} else {
		ex.isNew = true
		ex.conv = &model.Conversation{
			ID:                id.New(),
			UserID:            userID,
			Category:          req.Category,
			SystemInstruction: req.SystemInstruction,
			CreatedAt:         time.Now(),
		}
	}

	ex.userMsg = model.Message{
		ID:        id.New(),
		Role:      model.RoleUser,
		Text:      req.Text,
		Images:    req.Images,
		Timestamp: time.Now(),
	}

	// 标题生成和 AI 调用并行，finalize 前汇合
	if ex.isNew {
		ex.titleCh = s.generateTitle(ctx, req.Text)
	}

	return ex, nil
}

func (s *ChatService) exchangeRequest(ex *exchange, mode string) *ai.ExchangeRequest {
	return &ai.ExchangeRequest{
		History:           ai.CompactHistory(ex.conv.Messages),
		Text:              ex.userMsg.Text,
		Images:            ex.userMsg.Images,
		SystemInstruction: ex.conv.SystemInstruction,
		Mode:              mode,
	}
}

// generateTitle 异步生成标题，结果通过 channel 汇合
func (s *ChatService) generateTitle(ctx context.Context, firstMessage string) <-chan string {
	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		if s.titleChain != nil {
			title, err := s.titleChain.Generate(ctx, firstMessage)
			if err == nil && title != "" {
				ch <- title
				return
			}
			log.Warn().Err(err).Msg("title generation failed, using fallback")
		}
		ch <- ai.FallbackTitle(firstMessage)
	}()
	return ch
}

// finalize 组装模型消息、汇合标题并持久化
// 持久化失败不算致命错误，通过 ChatResponse.SaveError 透出
func (s *ChatService) finalize(ctx context.Context, userID string, ex *exchange, result *ai.ExchangeResult) *model.ChatResponse {
	modelMsg := model.Message{
		ID:             id.New(),
		Role:           model.RoleModel,
		Text:           result.Text,
		Images:         s.uploadImages(ctx, ex.conv.ID, result.Images),
		GroundingURLs:  result.GroundingURLs,
		Usage:          result.Usage,
		ModelName:      result.ModelName,
		ResponseTimeMs: result.ResponseTimeMs,
		Timestamp:      time.Now(),
	}

	if ex.titleCh != nil {
		if title, ok := <-ex.titleCh; ok {
			ex.conv.Title = title
		}
	}

	ex.conv.Messages = append(ex.conv.Messages, ex.userMsg, modelMsg)
	ex.conv.LastUpdated = time.Now()

	resp := &model.ChatResponse{
		ConversationID: ex.conv.ID,
		Message:        &modelMsg,
	}
	if ex.isNew {
		resp.Title = ex.conv.Title
	}

	// 匿名用户不落库
	if userID == "" {
		return resp
	}

	if err := s.convRepo.Upsert(ctx, ex.conv); err != nil {
		log.Error().Err(err).
			Str("conversation_id", ex.conv.ID).
			Msg("failed to persist conversation")
		resp.SaveError = "não foi possível salvar a conversa"
	}
	return resp
}

// Chat 阻塞式对话
func (s *ChatService) Chat(ctx context.Context, userID string, req *model.ChatRequest) (*model.ChatResponse, error) {
	ex, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	result, err := s.aiClient.Send(ctx, s.exchangeRequest(ex, req.Mode))
	if err != nil {
		// AI 失败时丢弃标题结果，避免 goroutine 泄漏
		s.drainTitle(ex)
		return nil, err
	}

	return s.finalize(ctx, userID, ex, result), nil
}

// ChatStream 流式对话
// 中间片段通过 emit 回调透出（Text 为累计文本），终止片段之后返回最终响应
func (s *ChatService) ChatStream(ctx context.Context, userID string, req *model.ChatRequest, emit func(*model.ChatChunk)) (*model.ChatResponse, error) {
	ex, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	chunks, err := s.aiClient.SendStream(ctx, s.exchangeRequest(ex, req.Mode))
	if err != nil {
		s.drainTitle(ex)
		return nil, err
	}

	var final *model.ChatChunk
	for chunk := range chunks {
		if chunk.Err != nil {
			s.drainTitle(ex)
			return nil, chunk.Err
		}
		if chunk.Done {
			final = chunk
			continue
		}
		emit(chunk)
	}

	if final == nil {
		s.drainTitle(ex)
		return nil, ai.ErrCommunication
	}

	result := &ai.ExchangeResult{
		Text:           final.Text,
		Images:         final.Images,
		GroundingURLs:  final.GroundingURLs,
		Usage:          final.Usage,
		ModelName:      final.ModelName,
		ResponseTimeMs: final.ResponseTimeMs,
	}
	return s.finalize(ctx, userID, ex, result), nil
}

func (s *ChatService) drainTitle(ex *exchange) {
	if ex.titleCh != nil {
		go func() { <-ex.titleCh }()
	}
}

// uploadImages 把生成的图片转存到对象存储，失败时保留 data URI
func (s *ChatService) uploadImages(ctx context.Context, convID string, images []string) []string {
	if s.store == nil || len(images) == 0 {
		return images
	}

	out := make([]string, 0, len(images))
	for _, img := range images {
		mimeType, data, ok := decodeDataURI(img)
		if !ok {
			out = append(out, img)
			continue
		}
		key := fmt.Sprintf("images/%s/%s%s", convID, id.New(), extensionFor(mimeType))
		url, err := s.store.Upload(ctx, key, strings.NewReader(data), mimeType)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("image upload failed, keeping data URI")
			out = append(out, img)
			continue
		}
		out = append(out, url)
	}
	return out
}

func decodeDataURI(uri string) (mimeType, data string, ok bool) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", "", false
	}
	return strings.TrimSuffix(meta, ";base64"), string(raw), true
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

// GetConversation 查询单个会话（含消息）
func (s *ChatService) GetConversation(ctx context.Context, userID, convID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, convID, userID)
	if err != nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// ListConversations 查询会话列表（不含消息体）
func (s *ChatService) ListConversations(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error) {
	return s.convRepo.ListByUserID(ctx, userID, limit, offset)
}

// DeleteConversation 删除会话
func (s *ChatService) DeleteConversation(ctx context.Context, userID, convID string) error {
	if err := s.convRepo.Delete(ctx, convID, userID); err != nil {
		return ErrConversationNotFound
	}
	return nil
}
