package application

import (
	"context"
	"time"

	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
)

// ListOrdersQuery 订单列表查询
type ListOrdersQuery struct {
	// 按创建日精确过滤，nil 表示不过滤
	Date *time.Time
	// 订单类型过滤，空串表示不过滤
	OrderType domain.OrderType
	Limit     int
	Offset    int
}

// OrderQueryService 处理订单相关的查询操作
type OrderQueryService struct {
	invoices domain.InvoiceRepository
}

// NewOrderQueryService 创建新的 OrderQueryService 实例
func NewOrderQueryService(invoices domain.InvoiceRepository) *OrderQueryService {
	return &OrderQueryService{invoices: invoices}
}

// ListOrders 分页查询订单
// 非管理员隐式限定为本人订单；排序为创建时间倒序、主键倒序
func (q *OrderQueryService) ListOrders(ctx context.Context, identity contextx.Identity, query ListOrdersQuery) (*PaginatedInvoices, error) {
	limit := query.Limit
	if limit < 1 {
		limit = 10
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	filter := domain.InvoiceFilter{
		Date:      query.Date,
		OrderType: query.OrderType,
		Limit:     limit,
		Offset:    offset,
	}
	if !identity.IsAdmin() {
		filter.UserID = identity.UserID
	}

	items, total, err := q.invoices.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &PaginatedInvoices{
		Items:      make([]*InvoiceDTO, 0, len(items)),
		TotalCount: total,
	}
	for _, inv := range items {
		result.Items = append(result.Items, toInvoiceDTO(inv))
	}

	if int64(offset+limit) < total {
		next := offset + limit
		result.NextOffset = &next
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		result.PreviousOffset = &prev
	}

	return result, nil
}

// GetOrder 获取订单详情
// 软删除的订单表现为不存在；非管理员只能查看本人订单
func (q *OrderQueryService) GetOrder(ctx context.Context, identity contextx.Identity, orderID uint) (*InvoiceDTO, error) {
	invoice, err := q.invoices.Get(ctx, orderID, false)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(identity, invoice, domain.ActionRead); err != nil {
		return nil, err
	}

	return toInvoiceDTO(invoice), nil
}
