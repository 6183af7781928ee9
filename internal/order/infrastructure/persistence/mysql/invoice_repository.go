// Package mysql 提供了订单仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"github.com/wyfcoding/goldtrade/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// invoiceRepositoryImpl 是 domain.InvoiceRepository 接口的 GORM 实现。
type invoiceRepositoryImpl struct {
	db *gorm.DB
}

// NewInvoiceRepository 创建订单仓储实例
func NewInvoiceRepository(db *gorm.DB) domain.InvoiceRepository {
	return &invoiceRepositoryImpl{db: db}
}

// session 优先使用上下文中携带的事务句柄
func (r *invoiceRepositoryImpl) session(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// Save 实现 domain.InvoiceRepository.Save
func (r *invoiceRepositoryImpl) Save(ctx context.Context, invoice *domain.Invoice) error {
	err := r.session(ctx).Save(invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateOrderNumber
		}
		logger.Error(ctx, "invoice_repository.save failed", "order_number", invoice.OrderNumber, "error", err)
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// Get 实现 domain.InvoiceRepository.Get
// gorm.DeletedAt 默认排除软删除记录，故已取消订单表现为不存在
func (r *invoiceRepositoryImpl) Get(ctx context.Context, id uint, forUpdate bool) (*domain.Invoice, error) {
	tx := r.session(ctx)
	if forUpdate {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoice domain.Invoice
	err := tx.Preload("Product").First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &invoice, nil
}

// List 实现 domain.InvoiceRepository.List
func (r *invoiceRepositoryImpl) List(ctx context.Context, filter domain.InvoiceFilter) ([]*domain.Invoice, int64, error) {
	query := r.session(ctx).Model(&domain.Invoice{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderType != "" {
		query = query.Where("order_type = ?", filter.OrderType)
	}
	if filter.Date != nil {
		query = query.Where("DATE(created_at) = ?", filter.Date.Format("2006-01-02"))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	var invoices []*domain.Invoice
	err := query.
		Preload("Product").
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}

	return invoices, total, nil
}

// SoftDelete 实现 domain.InvoiceRepository.SoftDelete
func (r *invoiceRepositoryImpl) SoftDelete(ctx context.Context, id uint) error {
	err := r.session(ctx).Delete(&domain.Invoice{}, id).Error
	if err != nil {
		logger.Error(ctx, "invoice_repository.soft_delete failed", "invoice_id", id, "error", err)
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}
