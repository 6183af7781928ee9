// Package http 提供认证服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/goldtrade/internal/auth/application"
	"github.com/wyfcoding/goldtrade/internal/auth/domain"
	"github.com/wyfcoding/goldtrade/pkg/logger"
	"github.com/wyfcoding/goldtrade/pkg/metrics"
	"github.com/wyfcoding/goldtrade/pkg/response"
)

// AuthHandler HTTP 处理器
// 负责处理注册、登录与令牌刷新请求
type AuthHandler struct {
	svc     *application.AuthService
	metrics *metrics.Metrics
}

// NewAuthHandler 创建 HTTP 处理器实例
func NewAuthHandler(svc *application.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{svc: svc, metrics: m}
}

// RegisterRoutes 注册路由
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/register", h.Register) // 注册
		api.POST("/login", h.Login)       // 登录
		api.POST("/refresh", h.Refresh)   // 刷新令牌
		api.POST("/logout", h.Logout)     // 登出
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register 注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	// 对外注册一律创建普通用户，管理员由运维侧直接落库
	info, err := h.svc.Register(c.Request.Context(), application.RegisterCommand{
		Username: req.Username,
		Password: req.Password,
		Role:     string(domain.RoleUser),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			response.ErrorWithStatus(c, http.StatusConflict, "username already exists", "")
			return
		}
		logger.Error(c.Request.Context(), "Failed to register user", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "registration failed", "")
		return
	}

	if h.metrics != nil {
		h.metrics.UsersRegisteredTotal.Inc()
	}
	response.SuccessWithMessage(c, http.StatusCreated, "registered", info)
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), application.LoginCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid credentials", "")
			return
		}
		logger.Error(c.Request.Context(), "Failed to login", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "login failed", "")
		return
	}

	if h.metrics != nil {
		h.metrics.LoginsTotal.Inc()
	}
	response.Success(c, pair)
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 刷新令牌
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.UserID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRefreshToken) {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid or expired refresh token", "")
			return
		}
		logger.Error(c.Request.Context(), "Failed to refresh token", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "refresh failed", "")
		return
	}

	response.Success(c, pair)
}

// LogoutRequest 登出请求
type LogoutRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Logout 登出，作废刷新令牌
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.svc.Logout(c.Request.Context(), req.UserID, req.RefreshToken); err != nil {
		if errors.Is(err, domain.ErrInvalidRefreshToken) {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid or expired refresh token", "")
			return
		}
		logger.Error(c.Request.Context(), "Failed to logout", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "logout failed", "")
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "logged out", nil)
}
