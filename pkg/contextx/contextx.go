// Package contextx 提供在 context 中传递请求身份与数据库事务的辅助函数
package contextx

import "context"

type contextKey string

const (
	identityKey contextKey = "identity"
	txKey       contextKey = "tx"
)

// Identity 认证后的调用方身份，由认证服务校验令牌后得出
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// IsAdmin 是否为管理员
func (i Identity) IsAdmin() bool {
	return i.Role == "ADMIN"
}

// WithIdentity 将身份写入 context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom 从 context 中读取身份
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithTx 将事务句柄写入 context，仓储方法据此加入同一事务
func WithTx(ctx context.Context, tx any) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// GetTx 从 context 中读取事务句柄，不存在时返回 nil
func GetTx(ctx context.Context) any {
	return ctx.Value(txKey)
}
