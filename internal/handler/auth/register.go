package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mango/internal/service"
)

// RegisterRequest 用户注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"` // 用户名（必填，3-50字符）
	Email    string `json:"email" binding:"required,email"`           // 邮箱（必填，需符合邮箱格式）
	Password string `json:"password" binding:"required,min=6"`        // 密码（必填，至少6位）
	Nickname string `json:"nickname,omitempty"`                       // 昵称（可选）
}

// RegisterResponseData 注册响应数据
type RegisterResponseData struct {
	UserID   string `json:"user_id"`  // 用户ID
	Username string `json:"username"` // 用户名
}

// Register 用户注册
// @Summary      用户注册
// @Description  注册新用户，注册即激活，可直接登录
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "注册请求"
// @Success      201      {object}  map[string]interface{}
// @Failure      400      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	resp, err := h.authService.Register(ctx, req.Username, req.Email, req.Password, req.Nickname)
	if err != nil {
		code := http.StatusInternalServerError
		errorCode := 50001

		switch {
		case errors.Is(err, service.ErrUserAlreadyExists):
			code = http.StatusBadRequest
			errorCode = 40001
		case errors.Is(err, service.ErrEmailTaken):
			code = http.StatusBadRequest
			errorCode = 40002
		}

		c.JSON(code, ErrorResponse{
			Code:    errorCode,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "registro concluído",
		"data": RegisterResponseData{
			UserID:   resp.UserID,
			Username: resp.Username,
		},
	})
}
