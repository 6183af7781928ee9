package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductType 黄金成色
type ProductType string

const (
	ProductGold999  ProductType = "GOLD_999"
	ProductGold9999 ProductType = "GOLD_9999"
)

// Product 商品实体
// 每种成色只有一条生效记录，价格由运营侧维护，对订单侧只读
type Product struct {
	gorm.Model
	// 成色类型
	Type ProductType `gorm:"column:type;type:varchar(20);uniqueIndex;not null" json:"type"`
	// 用户买入时的每克单价
	PurchasePricePerGram decimal.Decimal `gorm:"column:purchase_price_per_gram;type:decimal(10,2);not null" json:"purchase_price_per_gram"`
	// 用户卖出时的每克单价
	SalePricePerGram decimal.Decimal `gorm:"column:sale_price_per_gram;type:decimal(10,2);not null" json:"sale_price_per_gram"`
}

// UnitPrice 按订单类型选择单价快照
func (p *Product) UnitPrice(orderType OrderType) decimal.Decimal {
	if orderType == OrderTypePurchase {
		return p.PurchasePricePerGram
	}
	return p.SalePricePerGram
}

// InvoiceFilter 订单列表过滤条件
type InvoiceFilter struct {
	// 精确匹配创建日（按天），nil 表示不过滤
	Date *time.Time
	// 订单类型，空串表示不过滤
	OrderType OrderType
	// 非空时只返回该用户的订单
	UserID string
	Limit  int
	Offset int
}

// InvoiceRepository 订单仓储接口
type InvoiceRepository interface {
	// 保存订单；订单号唯一约束冲突时返回 ErrDuplicateOrderNumber
	Save(ctx context.Context, invoice *Invoice) error
	// 按主键获取订单（自动排除软删除），可选行级写锁
	Get(ctx context.Context, id uint, forUpdate bool) (*Invoice, error)
	// 按过滤条件分页查询，返回当前页与总数
	List(ctx context.Context, filter InvoiceFilter) ([]*Invoice, int64, error)
	// 软删除
	SoftDelete(ctx context.Context, id uint) error
}

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 按成色获取商品，不存在时返回 ErrProductUnavailable
	GetByType(ctx context.Context, productType ProductType) (*Product, error)
}
