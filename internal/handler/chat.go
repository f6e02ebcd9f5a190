package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"mango/internal/ai"
	"mango/internal/model"
	"mango/internal/pkg/ctxutil"
	"mango/internal/service"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	chatSvc *service.ChatService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(chatSvc *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatSvc: chatSvc,
	}
}

// Chat 阻塞式对话接口
// @Summary      发送消息（阻塞）
// @Description  发送一条消息，等待完整回复后一次性返回
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      model.ChatRequest  true  "对话请求"
// @Success      200      {object}  model.ChatResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	userID, _ := ctxutil.GetUserID(c.Request.Context())

	resp, err := h.chatSvc.Chat(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ChatStream 流式对话接口 (SSE)
// 事件流: message(累计文本) -> done(最终消息) [-> warning(保存失败)]
// 出错时发送 error 事件而不是中断连接
// @Summary      发送消息（流式）
// @Description  SSE 流式返回回复，message 事件的 text 为累计文本
// @Tags         对话
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body  model.ChatRequest  true  "对话请求"
// @Success      200
// @Security     BearerAuth
// @Router       /api/v1/chat/stream [post]
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	userID, _ := ctxutil.GetUserID(c.Request.Context())

	// 设置 SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		resp, err := h.chatSvc.ChatStream(c.Request.Context(), userID, &req, func(chunk *model.ChatChunk) {
			c.SSEvent("message", chunk)
			c.Writer.Flush()
		})
		if err != nil {
			c.SSEvent("error", gin.H{
				"message": err.Error(),
			})
			return false
		}

		c.SSEvent("done", resp)
		if resp.SaveError != "" {
			c.SSEvent("warning", gin.H{
				"message": resp.SaveError,
			})
		}
		return false
	})
}

// writeChatError 错误到 HTTP 状态码的映射
func (h *ChatHandler) writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    40401,
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40002,
			Message: err.Error(),
		})
	case errors.Is(err, ai.ErrCommunication):
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Code:    50201,
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50001,
			Message: "Erro interno",
			Detail:  err.Error(),
		})
	}
}
