package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mango/internal/model"
	"mango/internal/pkg/ctxutil"
	"mango/internal/service"
)

// ConversationHandler 会话管理处理器
type ConversationHandler struct {
	chatSvc *service.ChatService
}

// NewConversationHandler 创建会话管理处理器
func NewConversationHandler(chatSvc *service.ChatService) *ConversationHandler {
	return &ConversationHandler{
		chatSvc: chatSvc,
	}
}

// List 会话列表
// @Summary      会话列表
// @Description  按最后更新时间倒序返回当前用户的会话（不含消息体）
// @Tags         会话
// @Produce      json
// @Param        limit   query  int  false  "分页大小"  default(20)
// @Param        offset  query  int  false  "偏移量"   default(0)
// @Success      200  {array}  model.Conversation
// @Security     BearerAuth
// @Router       /api/v1/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	convs, err := h.chatSvc.ListConversations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50001,
			Message: "falha ao listar conversas",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": convs,
	})
}

// Get 会话详情
// @Summary      会话详情
// @Description  返回单个会话的完整消息历史
// @Tags         会话
// @Produce      json
// @Param        id  path  string  true  "会话ID"
// @Success      200  {object}  model.Conversation
// @Failure      404  {object}  model.ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	conv, err := h.chatSvc.GetConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    40401,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, conv)
}

// Delete 删除会话
// @Summary      删除会话
// @Tags         会话
// @Produce      json
// @Param        id  path  string  true  "会话ID"
// @Success      200
// @Failure      404  {object}  model.ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/conversations/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.chatSvc.DeleteConversation(c.Request.Context(), userID, c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    40401,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "conversa removida",
	})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, model.ErrorResponse{
		Code:    40101,
		Message: "não autorizado",
	})
}
