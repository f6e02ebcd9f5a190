package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mango/internal/model"
	"mango/internal/pkg/ctxutil"
	"mango/internal/pkg/debito"
	"mango/internal/service"
)

// BillingHandler 订阅/支付处理器
type BillingHandler struct {
	billingSvc *service.BillingService
}

// NewBillingHandler 创建订阅处理器
func NewBillingHandler(billingSvc *service.BillingService) *BillingHandler {
	return &BillingHandler{
		billingSvc: billingSvc,
	}
}

// Subscribe 发起订阅支付
// @Summary      发起订阅
// @Description  通过 M-Pesa / e-Mola 发起 C2B 扣款，同步返回支付结果
// @Tags         订阅
// @Accept       json
// @Produce      json
// @Param        request  body      model.SubscribeRequest  true  "订阅请求"
// @Success      200      {object}  model.Subscription
// @Failure      400      {object}  model.ErrorResponse
// @Failure      402      {object}  model.ErrorResponse
// @Security     BearerAuth
// @Router       /api/v1/billing/subscribe [post]
func (h *BillingHandler) Subscribe(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	var req model.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	sub, err := h.billingSvc.InitiateSubscription(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, debito.ErrInvalidPhone),
			errors.Is(err, debito.ErrInvalidMethod),
			errors.Is(err, debito.ErrMethodMismatch):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Code:    40003,
				Message: err.Error(),
			})
		case errors.Is(err, service.ErrPaymentFailed):
			// 支付失败时订阅记录仍然返回，状态为 failed
			c.JSON(http.StatusPaymentRequired, gin.H{
				"code":         40201,
				"message":      err.Error(),
				"subscription": sub,
			})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{
				Code:    50001,
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, sub)
}

// GetSubscription 查询当前生效的订阅
// @Summary      查询订阅
// @Description  返回当前用户已支付且未过期的订阅，没有时 data 为 null
// @Tags         订阅
// @Produce      json
// @Success      200  {object}  model.Subscription
// @Security     BearerAuth
// @Router       /api/v1/billing/subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		unauthorized(c)
		return
	}

	sub, err := h.billingSvc.GetActiveSubscription(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50001,
			Message: "falha ao consultar subscrição",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription": sub,
		"active":       sub != nil,
	})
}
