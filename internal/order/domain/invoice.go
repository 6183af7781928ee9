// Package domain 包含订单服务的领域模型
package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"gorm.io/gorm"
)

// OrderType 订单类型（买入/卖出）
type OrderType string

const (
	OrderTypePurchase OrderType = "PURCHASE"
	OrderTypeSale     OrderType = "SALE"
)

// IsValid 判断订单类型是否合法
func (t OrderType) IsValid() bool {
	return t == OrderTypePurchase || t == OrderTypeSale
}

// OrderStatus 订单状态
type OrderStatus string

const (
	StatusOrderCompleted  OrderStatus = "ORDER_COMPLETED"
	StatusPaymentReceived OrderStatus = "PAYMENT_RECEIVED"
	StatusShipped         OrderStatus = "SHIPPED"
	StatusPaymentSent     OrderStatus = "PAYMENT_SENT"
	StatusItemReceived    OrderStatus = "ITEM_RECEIVED"
)

// 领域错误
var (
	// ErrOrderNotFound 订单不存在（含已软删除）
	ErrOrderNotFound = errors.New("order not found")
	// ErrAccessDenied 无权访问该订单
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidStatusChange 状态迁移不在状态图中
	ErrInvalidStatusChange = errors.New("invalid status change")
	// ErrOrderNotCancellable 当前状态不允许取消
	ErrOrderNotCancellable = errors.New("order cannot be cancelled in its current status")
	// ErrProductUnavailable 商品不可下单
	ErrProductUnavailable = errors.New("product currently unavailable for ordering")
	// ErrDuplicateOrderNumber 订单号唯一约束冲突
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	// ErrInvalidQuantity 数量不合法
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// transitions 每种订单类型的合法状态迁移图
// PURCHASE: ORDER_COMPLETED → PAYMENT_RECEIVED → SHIPPED
// SALE:     ORDER_COMPLETED → PAYMENT_SENT     → ITEM_RECEIVED
var transitions = map[OrderType]map[OrderStatus]OrderStatus{
	OrderTypePurchase: {
		StatusOrderCompleted:  StatusPaymentReceived,
		StatusPaymentReceived: StatusShipped,
	},
	OrderTypeSale: {
		StatusOrderCompleted: StatusPaymentSent,
		StatusPaymentSent:    StatusItemReceived,
	},
}

// cancellable 允许取消的状态集合，终态不可取消
var cancellable = map[OrderStatus]bool{
	StatusOrderCompleted:  true,
	StatusPaymentReceived: true,
	StatusPaymentSent:     true,
}

// maxQuantity 单笔订单克数上限
var maxQuantity = decimal.RequireFromString("9999999.99")

// ValidateQuantity 校验克数：必须为正、不超过上限、最多两位小数
func ValidateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() || q.GreaterThan(maxQuantity) || q.Exponent() < -2 {
		return ErrInvalidQuantity
	}
	return nil
}

// IsValidStatusTransition 判断 (current → target) 是否为该订单类型状态图中的一条边
func IsValidStatusTransition(orderType OrderType, current, target OrderStatus) bool {
	next, ok := transitions[orderType][current]
	return ok && next == target
}

// Invoice 订单实体
// gorm.Model 自带的 DeletedAt 实现软删除
type Invoice struct {
	gorm.Model
	// 订单号，形如 PURCHASE-240115-A3F9K
	OrderNumber string `gorm:"column:order_number;type:varchar(32);uniqueIndex;not null" json:"order_number"`
	// 订单类型
	OrderType OrderType `gorm:"column:order_type;type:varchar(10);index;not null" json:"order_type"`
	// 订单状态
	Status OrderStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// 克数
	Quantity decimal.Decimal `gorm:"column:quantity;type:decimal(10,2);not null" json:"quantity"`
	// 下单时的每克单价快照
	Price decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	// 总价 = 单价 × 数量，创建后不再重算
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:decimal(20,2);not null" json:"total_price"`
	// 收货地址
	DeliveryAddress string `gorm:"column:delivery_address;type:varchar(255);not null" json:"delivery_address"`
	// 收货人
	RecipientName string `gorm:"column:recipient_name;type:varchar(100);not null" json:"recipient_name"`
	// 联系电话
	ContactNumber string `gorm:"column:contact_number;type:varchar(20);not null" json:"contact_number"`
	// 邮编
	PostalCode string `gorm:"column:postal_code;type:varchar(10);not null" json:"postal_code"`
	// 商品外键
	ProductID uint    `gorm:"column:product_id;index;not null" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"product"`
	// 所属用户
	UserID string `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
}

// NewInvoice 创建订单，初始状态固定为 ORDER_COMPLETED
func NewInvoice(orderNumber string, orderType OrderType, product *Product, quantity decimal.Decimal, userID string, deliveryAddress, recipientName, contactNumber, postalCode string) *Invoice {
	price := product.UnitPrice(orderType)
	return &Invoice{
		OrderNumber:     orderNumber,
		OrderType:       orderType,
		Status:          StatusOrderCompleted,
		Quantity:        quantity,
		Price:           price,
		TotalPrice:      price.Mul(quantity).Round(2),
		DeliveryAddress: deliveryAddress,
		RecipientName:   recipientName,
		ContactNumber:   contactNumber,
		PostalCode:      postalCode,
		ProductID:       product.ID,
		UserID:          userID,
	}
}

// IsOwnedBy 判断订单是否属于该用户
func (i *Invoice) IsOwnedBy(userID string) bool {
	return i.UserID == userID
}

// CanCancel 判断当前状态是否允许取消
func (i *Invoice) CanCancel() bool {
	return cancellable[i.Status]
}

// Action 针对订单的操作类别，供统一的授权判定使用
type Action string

const (
	ActionRead   Action = "read"
	ActionCancel Action = "cancel"
)

// Authorize 统一的所有权授权判定：管理员放行，普通用户仅限本人订单
func Authorize(identity contextx.Identity, invoice *Invoice, _ Action) error {
	if identity.IsAdmin() {
		return nil
	}
	if !invoice.IsOwnedBy(identity.UserID) {
		return ErrAccessDenied
	}
	return nil
}

// CanChangeStatus 状态变更授权，与迁移合法性无关
// 管理员可设置任何可达状态；普通用户仅限本人订单且目标状态必须是 ORDER_COMPLETED。
// 这意味着普通用户无法通过该接口推进订单状态，与线上观察到的策略保持一致。
func CanChangeStatus(identity contextx.Identity, invoice *Invoice, target OrderStatus) bool {
	if identity.IsAdmin() {
		return true
	}
	return invoice.IsOwnedBy(identity.UserID) && target == StatusOrderCompleted
}
