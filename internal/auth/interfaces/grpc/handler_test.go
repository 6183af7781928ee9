package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	authv1 "github.com/wyfcoding/goldtrade/go-api/auth/v1"
	"github.com/wyfcoding/goldtrade/internal/auth/application"
	"github.com/wyfcoding/goldtrade/internal/auth/domain"
)

func TestValidateToken(t *testing.T) {
	tokens := application.NewTokenManager("test-secret", "goldtrade-auth", 30*time.Minute, 168*time.Hour)
	handler := NewHandler(application.NewAuthService(nil, nil, tokens))

	user := domain.NewUser("uid-1", "alice", "hash", domain.RoleAdmin)
	access, err := tokens.IssueAccessToken(user, time.Now())
	require.NoError(t, err)

	resp, err := handler.ValidateToken(context.Background(), &authv1.ValidateTokenRequest{Token: access})
	require.NoError(t, err)
	require.True(t, resp.GetIsValid())
	require.Equal(t, "uid-1", resp.GetUserId())
	require.Equal(t, "alice", resp.GetUsername())
	require.Equal(t, "ADMIN", resp.GetRole())
}

func TestValidateTokenInvalid(t *testing.T) {
	tokens := application.NewTokenManager("test-secret", "goldtrade-auth", 30*time.Minute, 168*time.Hour)
	handler := NewHandler(application.NewAuthService(nil, nil, tokens))

	// 无效令牌不产生 gRPC 错误，只置 is_valid=false
	resp, err := handler.ValidateToken(context.Background(), &authv1.ValidateTokenRequest{Token: "garbage"})
	require.NoError(t, err)
	require.False(t, resp.GetIsValid())
	require.Empty(t, resp.GetUserId())
}

func TestValidateTokenExpired(t *testing.T) {
	tokens := application.NewTokenManager("test-secret", "goldtrade-auth", 30*time.Minute, 168*time.Hour)
	handler := NewHandler(application.NewAuthService(nil, nil, tokens))

	user := domain.NewUser("uid-1", "alice", "hash", domain.RoleUser)
	access, err := tokens.IssueAccessToken(user, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	resp, err := handler.ValidateToken(context.Background(), &authv1.ValidateTokenRequest{Token: access})
	require.NoError(t, err)
	require.False(t, resp.GetIsValid())
}
