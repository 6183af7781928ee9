// Package application 实现认证服务的应用层逻辑
package application

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/goldtrade/internal/auth/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"github.com/wyfcoding/goldtrade/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Transactor 事务边界抽象，*gorm.DB 天然满足；测试中可注入假实现
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// RegisterCommand 注册命令
type RegisterCommand struct {
	Username string
	Password string
	Role     string
}

// LoginCommand 登录命令
type LoginCommand struct {
	Username string
	Password string
}

// TokenPair 一次签发的令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserInfo 对外返回的用户信息
type UserInfo struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Identity 令牌校验结果
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// AuthService 认证应用服务
type AuthService struct {
	repo   domain.UserRepository
	db     Transactor
	tokens *TokenManager
	now    func() time.Time
}

// NewAuthService 构造函数
func NewAuthService(repo domain.UserRepository, db Transactor, tokens *TokenManager) *AuthService {
	return &AuthService{
		repo:   repo,
		db:     db,
		tokens: tokens,
		now:    time.Now,
	}
}

// Register 注册新用户
// 用户名冲突返回 domain.ErrUsernameTaken
func (s *AuthService) Register(ctx context.Context, cmd RegisterCommand) (*UserInfo, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(uuid.NewString(), cmd.Username, string(hash), domain.Role(cmd.Role))

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		existing, err := s.repo.GetByUsername(txCtx, cmd.Username)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		if existing != nil {
			return domain.ErrUsernameTaken
		}

		return s.repo.Save(txCtx, user)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "User registered", "user_id", user.UserID, "username", user.Username, "role", user.Role)
	return &UserInfo{UserID: user.UserID, Username: user.Username, Role: string(user.Role)}, nil
}

// Login 校验凭证并签发令牌对，刷新令牌哈希落库
func (s *AuthService) Login(ctx context.Context, cmd LoginCommand) (*TokenPair, error) {
	user, err := s.repo.GetByUsername(ctx, cmd.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(cmd.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Refresh 轮换刷新令牌：旧令牌校验通过后立即作废，签发新令牌对
func (s *AuthService) Refresh(ctx context.Context, userID, refreshToken string) (*TokenPair, error) {
	user, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidRefreshToken
		}
		return nil, err
	}

	now := s.now()
	if !user.RefreshTokenValid(now) {
		return nil, domain.ErrInvalidRefreshToken
	}

	hash := HashRefreshToken(refreshToken)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(user.RefreshTokenHash)) != 1 {
		return nil, domain.ErrInvalidRefreshToken
	}

	return s.issueTokens(ctx, user)
}

// Logout 作废当前刷新令牌，后续 Refresh 将失败
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	user, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidRefreshToken
		}
		return err
	}

	if !user.RefreshTokenValid(s.now()) {
		return domain.ErrInvalidRefreshToken
	}

	hash := HashRefreshToken(refreshToken)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(user.RefreshTokenHash)) != 1 {
		return domain.ErrInvalidRefreshToken
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		fresh, err := s.repo.GetByUserID(txCtx, user.UserID)
		if err != nil {
			return err
		}
		fresh.ClearRefreshToken()
		return s.repo.Save(txCtx, fresh)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "User logged out", "user_id", user.UserID)
	return nil
}

// ValidateToken 校验访问令牌并返回身份信息
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	now := s.now()

	access, err := s.tokens.IssueAccessToken(user, now)
	if err != nil {
		return nil, err
	}

	refresh, refreshHash, expiresAt, err := s.tokens.NewRefreshToken(now)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		fresh, err := s.repo.GetByUserID(txCtx, user.UserID)
		if err != nil {
			return err
		}
		fresh.SetRefreshToken(refreshHash, expiresAt)
		return s.repo.Save(txCtx, fresh)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Tokens issued", "user_id", user.UserID)
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}
