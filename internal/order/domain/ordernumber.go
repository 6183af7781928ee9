package domain

import (
	"crypto/rand"
	"fmt"
	"time"
)

const orderNumberCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber 生成形如 PURCHASE-240115-A3F9K 的订单号
// 随机段不保证全局唯一，订单号的唯一性最终由数据库唯一约束兜底
func NewOrderNumber(orderType OrderType, now time.Time) (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderNumberCharset[int(b)%len(orderNumberCharset)]
	}
	return fmt.Sprintf("%s-%s-%s", orderType, now.Format("060102"), string(buf)), nil
}
