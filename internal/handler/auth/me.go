package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mango/internal/pkg/ctxutil"
	"mango/internal/service"
)

// GetMe 获取当前用户信息
// 路由挂在认证中间件之后，user_id 已在 context 中
// @Summary      获取当前用户信息
// @Description  获取当前登录用户的详细信息
// @Tags         认证
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/auth/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    40101,
			Message: "não autorizado",
		})
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		code := http.StatusInternalServerError
		errorCode := 50001
		if errors.Is(err, service.ErrUserNotFound) {
			code = http.StatusUnauthorized
			errorCode = 40101
		}

		c.JSON(code, ErrorResponse{
			Code:    errorCode,
			Message: err.Error(),
		})
		return
	}

	userInfo := toUserInfo(user)

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    userInfo,
	})
}
