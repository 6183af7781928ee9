package application

import (
	"database/sql"

	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"gorm.io/gorm"
)

// Transactor 事务边界抽象，*gorm.DB 天然满足；测试中可注入假实现
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// OrderService 订单服务门面，整合命令和查询服务
type OrderService struct {
	Command *OrderCommandService
	Query   *OrderQueryService
}

// NewOrderService 构造函数
func NewOrderService(invoices domain.InvoiceRepository, products domain.ProductRepository, db Transactor) *OrderService {
	return &OrderService{
		Command: NewOrderCommandService(invoices, products, db),
		Query:   NewOrderQueryService(invoices),
	}
}
