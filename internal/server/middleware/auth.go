package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mango/internal/pkg/ctxutil"
	"mango/internal/pkg/jwt"
)

// Auth JWT 认证中间件
// 从 Authorization header 中提取 Bearer token，验证后注入 user_id 到 context
func Auth(jwtUtil *jwt.JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从 Header 获取 Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40101,
				"message": "não autorizado",
			})
			c.Abort()
			return
		}

		// 提取 Token（Bearer {token}）
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    40101,
				"message": "Invalid authorization header",
			})
			c.Abort()
			return
		}

		tokenString := parts[1]

		// 验证 Token
		claims, err := jwtUtil.ValidateToken(tokenString)
		if err != nil {
			errorCode := 40102
			if err == jwt.ErrExpiredToken {
				errorCode = 40102
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    errorCode,
				"message": "token inválido ou expirado",
			})
			c.Abort()
			return
		}

		// 将 user_id 注入到 context
		ctx := ctxutil.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}


// OptionalAuth 可选认证中间件
// 携带有效 Token 时注入 user_id，匿名请求直接放行
// 匿名对话不持久化，由 service 层根据 context 判断
func OptionalAuth(jwtUtil *jwt.JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		claims, err := jwtUtil.ValidateToken(parts[1])
		if err != nil {
			// 无效 Token 按匿名处理，不中断请求
			c.Next()
			return
		}

		ctx := ctxutil.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
