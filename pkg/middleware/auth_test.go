package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	authv1 "github.com/wyfcoding/goldtrade/go-api/auth/v1"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"google.golang.org/grpc"
)

type fakeAuthClient struct {
	resp *authv1.ValidateTokenResponse
	err  error
}

func (f *fakeAuthClient) ValidateToken(_ context.Context, _ *authv1.ValidateTokenRequest, _ ...grpc.CallOption) (*authv1.ValidateTokenResponse, error) {
	return f.resp, f.err
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "standard", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer tok", want: "tok"},
		{name: "empty", header: "", want: ""},
		{name: "no scheme", header: "abc.def.ghi", want: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwdw==", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractBearerToken(tc.header); got != tc.want {
				t.Fatalf("extractBearerToken(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func runAuthMiddleware(t *testing.T, client authv1.AuthServiceClient, authHeader string) (*httptest.ResponseRecorder, contextx.Identity, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(client))

	var identity contextx.Identity
	var found bool
	router.GET("/probe", func(c *gin.Context) {
		identity, found = contextx.IdentityFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec, identity, found
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	client := &fakeAuthClient{resp: &authv1.ValidateTokenResponse{
		IsValid:  true,
		UserId:   "uid-1",
		Username: "alice",
		Role:     "ADMIN",
	}}

	rec, identity, found := runAuthMiddleware(t, client, "Bearer good-token")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	require.Equal(t, "uid-1", identity.UserID)
	require.Equal(t, "alice", identity.Username)
	require.True(t, identity.IsAdmin())
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	rec, _, found := runAuthMiddleware(t, &fakeAuthClient{}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, found)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	client := &fakeAuthClient{resp: &authv1.ValidateTokenResponse{IsValid: false}}

	rec, _, found := runAuthMiddleware(t, client, "Bearer bad-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, found)
}

func TestAuthMiddlewareRPCFailure(t *testing.T) {
	client := &fakeAuthClient{err: errors.New("connection refused")}

	rec, _, found := runAuthMiddleware(t, client, "Bearer any")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, found)
}
