package application

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"gorm.io/gorm"
)

// fakeTransactor 测试用事务实现，直接执行回调
type fakeTransactor struct{}

func (fakeTransactor) Transaction(fc func(tx *gorm.DB) error, _ ...*sql.TxOptions) error {
	return fc(nil)
}

// memInvoiceRepo 内存订单仓储，行为对齐 GORM 软删除语义
type memInvoiceRepo struct {
	nextID   uint
	invoices map[uint]*domain.Invoice
	deleted  map[uint]bool
	saves    int
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{
		nextID:   1,
		invoices: make(map[uint]*domain.Invoice),
		deleted:  make(map[uint]bool),
	}
}

func (r *memInvoiceRepo) Save(_ context.Context, invoice *domain.Invoice) error {
	for id, existing := range r.invoices {
		if existing.OrderNumber == invoice.OrderNumber && id != invoice.ID {
			return domain.ErrDuplicateOrderNumber
		}
	}
	if invoice.ID == 0 {
		invoice.ID = r.nextID
		r.nextID++
		if invoice.CreatedAt.IsZero() {
			invoice.CreatedAt = time.Now()
		}
	}
	copied := *invoice
	r.invoices[invoice.ID] = &copied
	r.saves++
	return nil
}

func (r *memInvoiceRepo) Get(_ context.Context, id uint, _ bool) (*domain.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || r.deleted[id] {
		return nil, domain.ErrOrderNotFound
	}
	copied := *inv
	return &copied, nil
}

func (r *memInvoiceRepo) List(_ context.Context, filter domain.InvoiceFilter) ([]*domain.Invoice, int64, error) {
	var matched []*domain.Invoice
	for id, inv := range r.invoices {
		if r.deleted[id] {
			continue
		}
		if filter.UserID != "" && inv.UserID != filter.UserID {
			continue
		}
		if filter.OrderType != "" && inv.OrderType != filter.OrderType {
			continue
		}
		if filter.Date != nil {
			y1, m1, d1 := inv.CreatedAt.Date()
			y2, m2, d2 := filter.Date.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		matched = append(matched, inv)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *memInvoiceRepo) SoftDelete(_ context.Context, id uint) error {
	r.deleted[id] = true
	return nil
}

// memProductRepo 内存商品仓储
type memProductRepo struct {
	products map[domain.ProductType]*domain.Product
}

func newMemProductRepo(products ...*domain.Product) *memProductRepo {
	repo := &memProductRepo{products: make(map[domain.ProductType]*domain.Product)}
	for _, p := range products {
		repo.products[p.Type] = p
	}
	return repo
}

func (r *memProductRepo) GetByType(_ context.Context, productType domain.ProductType) (*domain.Product, error) {
	p, ok := r.products[productType]
	if !ok {
		return nil, domain.ErrProductUnavailable
	}
	return p, nil
}
