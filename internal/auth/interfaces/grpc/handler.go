// Package grpc 提供认证服务的 gRPC 接口
package grpc

import (
	"context"

	authv1 "github.com/wyfcoding/goldtrade/go-api/auth/v1"
	"github.com/wyfcoding/goldtrade/internal/auth/application"
	"github.com/wyfcoding/goldtrade/pkg/logger"
)

// Handler 实现 authv1.AuthServiceServer
type Handler struct {
	authv1.UnimplementedAuthServiceServer
	svc *application.AuthService
}

// NewHandler 创建 gRPC 处理器实例
func NewHandler(svc *application.AuthService) *Handler {
	return &Handler{svc: svc}
}

// ValidateToken 校验访问令牌
// 令牌无效不返回 gRPC 错误，而是 is_valid=false，由调用方决定如何处理
func (h *Handler) ValidateToken(ctx context.Context, req *authv1.ValidateTokenRequest) (*authv1.ValidateTokenResponse, error) {
	identity, err := h.svc.ValidateToken(ctx, req.GetToken())
	if err != nil {
		logger.Debug(ctx, "Token validation failed", "error", err)
		return &authv1.ValidateTokenResponse{IsValid: false}, nil
	}

	return &authv1.ValidateTokenResponse{
		IsValid:  true,
		UserId:   identity.UserID,
		Username: identity.Username,
		Role:     identity.Role,
	}, nil
}
