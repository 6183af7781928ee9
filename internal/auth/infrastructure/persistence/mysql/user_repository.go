// Package mysql 提供了用户仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/goldtrade/internal/auth/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"github.com/wyfcoding/goldtrade/pkg/logger"
	"gorm.io/gorm"
)

// UserModel 用户数据库模型，直接映射 users 表。
type UserModel struct {
	gorm.Model
	UserID                string     `gorm:"column:user_id;type:varchar(36);uniqueIndex;not null;comment:用户对外ID"`
	Username              string     `gorm:"column:username;type:varchar(50);uniqueIndex;not null;comment:用户名"`
	PasswordHash          string     `gorm:"column:password_hash;type:varchar(100);not null;comment:密码哈希"`
	Role                  string     `gorm:"column:role;type:varchar(10);not null;default:'USER';comment:角色(USER/ADMIN)"`
	RefreshTokenHash      string     `gorm:"column:refresh_token_hash;type:varchar(100);comment:刷新令牌哈希"`
	RefreshTokenExpiresAt *time.Time `gorm:"column:refresh_token_expires_at;comment:刷新令牌过期时间"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

func toUserModel(u *domain.User) *UserModel {
	return &UserModel{
		Model:                 u.Model,
		UserID:                u.UserID,
		Username:              u.Username,
		PasswordHash:          u.PasswordHash,
		Role:                  string(u.Role),
		RefreshTokenHash:      u.RefreshTokenHash,
		RefreshTokenExpiresAt: u.RefreshTokenExpiresAt,
	}
}

func toUser(m *UserModel) *domain.User {
	return &domain.User{
		Model:                 m.Model,
		UserID:                m.UserID,
		Username:              m.Username,
		PasswordHash:          m.PasswordHash,
		Role:                  domain.Role(m.Role),
		RefreshTokenHash:      m.RefreshTokenHash,
		RefreshTokenExpiresAt: m.RefreshTokenExpiresAt,
	}
}

// userRepositoryImpl 是 domain.UserRepository 接口的 GORM 实现。
type userRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepositoryImpl{db: db}
}

// session 优先使用上下文中携带的事务句柄
func (r *userRepositoryImpl) session(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// Save 实现 domain.UserRepository.Save
func (r *userRepositoryImpl) Save(ctx context.Context, user *domain.User) error {
	model := toUserModel(user)

	err := r.session(ctx).Save(model).Error
	if err != nil {
		logger.Error(ctx, "user_repository.save failed", "user_id", user.UserID, "error", err)
		return fmt.Errorf("failed to save user: %w", err)
	}

	user.Model = model.Model
	return nil
}

// GetByUserID 实现 domain.UserRepository.GetByUserID
func (r *userRepositoryImpl) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	var model UserModel
	err := r.session(ctx).Where("user_id = ?", userID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUser(&model), nil
}

// GetByUsername 实现 domain.UserRepository.GetByUsername
func (r *userRepositoryImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var model UserModel
	err := r.session(ctx).Where("username = ?", username).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUser(&model), nil
}
