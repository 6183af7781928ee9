package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authv1 "github.com/wyfcoding/goldtrade/go-api/auth/v1"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"github.com/wyfcoding/goldtrade/pkg/logger"
	"github.com/wyfcoding/goldtrade/pkg/response"
)

// AuthMiddleware 鉴权中间件
// 提取 Bearer 令牌并通过认证服务的 gRPC ValidateToken 校验，
// 校验通过后将身份写入请求 context 供后续处理使用。
// 令牌无效或 RPC 失败均视为认证失败。
func AuthMiddleware(client authv1.AuthServiceClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "missing or malformed authorization header", "")
			c.Abort()
			return
		}

		resp, err := client.ValidateToken(c.Request.Context(), &authv1.ValidateTokenRequest{Token: token})
		if err != nil {
			logger.Error(c.Request.Context(), "Token validation RPC failed", "error", err)
			response.ErrorWithStatus(c, http.StatusUnauthorized, "authentication failed", "")
			c.Abort()
			return
		}
		if !resp.GetIsValid() {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid or expired token", "")
			c.Abort()
			return
		}

		identity := contextx.Identity{
			UserID:   resp.GetUserId(),
			Username: resp.GetUsername(),
			Role:     resp.GetRole(),
		}
		c.Request = c.Request.WithContext(contextx.WithIdentity(c.Request.Context(), identity))

		c.Next()
	}
}

// extractBearerToken 从 Authorization 头中提取 Bearer 令牌
func extractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
