// Package application 实现订单服务的应用层逻辑
package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"github.com/wyfcoding/goldtrade/pkg/logger"
	"gorm.io/gorm"
)

// CreateOrderCommand 下单命令
// OrderType 由路由端点决定（买入/卖出），不由客户端提交
type CreateOrderCommand struct {
	OrderType       domain.OrderType
	ProductType     domain.ProductType
	Quantity        decimal.Decimal
	DeliveryAddress string
	RecipientName   string
	ContactNumber   string
	PostalCode      string
}

// UpdateStatusCommand 状态变更命令
type UpdateStatusCommand struct {
	OrderID   uint
	NewStatus domain.OrderStatus
}

// UpdateStatusResult 状态变更结果
type UpdateStatusResult struct {
	// 目标状态与当前状态相同时为 true，此时未发生写入
	Unchanged bool
	Status    domain.OrderStatus
}

// OrderCommandService 处理订单相关的命令操作
type OrderCommandService struct {
	invoices domain.InvoiceRepository
	products domain.ProductRepository
	db       Transactor
	now      func() time.Time
}

// NewOrderCommandService 创建新的 OrderCommandService 实例
func NewOrderCommandService(invoices domain.InvoiceRepository, products domain.ProductRepository, db Transactor) *OrderCommandService {
	return &OrderCommandService{
		invoices: invoices,
		products: products,
		db:       db,
		now:      time.Now,
	}
}

// CreateOrder 下单
// 单价按订单类型取商品快照，总价在创建时一次算定
func (c *OrderCommandService) CreateOrder(ctx context.Context, identity contextx.Identity, cmd CreateOrderCommand) (string, error) {
	if err := domain.ValidateQuantity(cmd.Quantity); err != nil {
		return "", err
	}

	orderNumber, err := domain.NewOrderNumber(cmd.OrderType, c.now())
	if err != nil {
		return "", err
	}

	err = c.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		product, err := c.products.GetByType(txCtx, cmd.ProductType)
		if err != nil {
			return err
		}

		invoice := domain.NewInvoice(
			orderNumber,
			cmd.OrderType,
			product,
			cmd.Quantity,
			identity.UserID,
			cmd.DeliveryAddress,
			cmd.RecipientName,
			cmd.ContactNumber,
			cmd.PostalCode,
		)

		return c.invoices.Save(txCtx, invoice)
	})
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "Order created",
		"order_number", orderNumber,
		"order_type", cmd.OrderType,
		"user_id", identity.UserID,
	)
	return orderNumber, nil
}

// UpdateStatus 变更订单状态
// 取单、校验、落库在同一事务内完成，取单带行级写锁防止并发状态跳跃
func (c *OrderCommandService) UpdateStatus(ctx context.Context, identity contextx.Identity, cmd UpdateStatusCommand) (*UpdateStatusResult, error) {
	var result *UpdateStatusResult

	err := c.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		invoice, err := c.invoices.Get(txCtx, cmd.OrderID, true)
		if err != nil {
			return err
		}

		if invoice.Status == cmd.NewStatus {
			result = &UpdateStatusResult{Unchanged: true, Status: invoice.Status}
			return nil
		}

		if !domain.CanChangeStatus(identity, invoice, cmd.NewStatus) {
			return domain.ErrAccessDenied
		}

		if !domain.IsValidStatusTransition(invoice.OrderType, invoice.Status, cmd.NewStatus) {
			return domain.ErrInvalidStatusChange
		}

		invoice.Status = cmd.NewStatus
		if err := c.invoices.Save(txCtx, invoice); err != nil {
			return err
		}

		result = &UpdateStatusResult{Status: invoice.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Unchanged {
		logger.Info(ctx, "Order status updated",
			"order_id", cmd.OrderID,
			"status", result.Status,
			"user_id", identity.UserID,
		)
	}
	return result, nil
}

// CancelOrder 取消订单（软删除）
// 已删除的订单在取单时即表现为不存在，重复取消返回未找到
func (c *OrderCommandService) CancelOrder(ctx context.Context, identity contextx.Identity, orderID uint) error {
	err := c.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		invoice, err := c.invoices.Get(txCtx, orderID, true)
		if err != nil {
			return err
		}

		if err := domain.Authorize(identity, invoice, domain.ActionCancel); err != nil {
			return err
		}

		if !invoice.CanCancel() {
			return domain.ErrOrderNotCancellable
		}

		return c.invoices.SoftDelete(txCtx, invoice.ID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "Order cancelled", "order_id", orderID, "user_id", identity.UserID)
	return nil
}
