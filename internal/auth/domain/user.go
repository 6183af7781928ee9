// Package domain 包含认证服务的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Role 用户角色
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IsValid 判断角色是否合法
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// 领域错误
var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken 用户名已被占用
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken 刷新令牌无效或已过期
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// User 用户实体
// 密码与刷新令牌只存哈希，永不存明文
type User struct {
	gorm.Model
	// 用户唯一标识（对外暴露的 ID）
	UserID string `gorm:"column:user_id;type:varchar(36);uniqueIndex;not null" json:"user_id"`
	// 用户名
	Username string `gorm:"column:username;type:varchar(50);uniqueIndex;not null" json:"username"`
	// 密码哈希
	PasswordHash string `gorm:"column:password_hash;type:varchar(100);not null" json:"-"`
	// 角色
	Role Role `gorm:"column:role;type:varchar(10);not null;default:'USER'" json:"role"`
	// 刷新令牌哈希
	RefreshTokenHash string `gorm:"column:refresh_token_hash;type:varchar(100)" json:"-"`
	// 刷新令牌过期时间
	RefreshTokenExpiresAt *time.Time `gorm:"column:refresh_token_expires_at" json:"-"`
}

// NewUser 创建用户
func NewUser(userID, username, passwordHash string, role Role) *User {
	if !role.IsValid() {
		role = RoleUser
	}
	return &User{
		UserID:       userID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	}
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetRefreshToken 记录刷新令牌哈希与过期时间
func (u *User) SetRefreshToken(hash string, expiresAt time.Time) {
	u.RefreshTokenHash = hash
	u.RefreshTokenExpiresAt = &expiresAt
}

// ClearRefreshToken 作废刷新令牌
func (u *User) ClearRefreshToken() {
	u.RefreshTokenHash = ""
	u.RefreshTokenExpiresAt = nil
}

// RefreshTokenValid 判断刷新令牌是否仍然有效
func (u *User) RefreshTokenValid(now time.Time) bool {
	return u.RefreshTokenHash != "" &&
		u.RefreshTokenExpiresAt != nil &&
		now.Before(*u.RefreshTokenExpiresAt)
}

// UserRepository 用户仓储接口
type UserRepository interface {
	// 保存用户
	Save(ctx context.Context, user *User) error
	// 按对外 ID 获取用户
	GetByUserID(ctx context.Context, userID string) (*User, error)
	// 按用户名获取用户
	GetByUsername(ctx context.Context, username string) (*User, error)
}
