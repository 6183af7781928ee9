package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/goldtrade/internal/order/domain"
)

// InvoiceDTO 订单视图
type InvoiceDTO struct {
	ID              uint            `json:"id"`
	OrderNumber     string          `json:"order_number"`
	OrderType       string          `json:"order_type"`
	Status          string          `json:"status"`
	ProductType     string          `json:"product_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	DeliveryAddress string          `json:"delivery_address"`
	RecipientName   string          `json:"recipient_name"`
	ContactNumber   string          `json:"contact_number"`
	PostalCode      string          `json:"postal_code"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PaginatedInvoices 分页查询结果
// NextOffset/PreviousOffset 为 nil 表示对应方向没有更多页
type PaginatedInvoices struct {
	Items          []*InvoiceDTO `json:"items"`
	TotalCount     int64         `json:"total_count"`
	NextOffset     *int          `json:"next_offset,omitempty"`
	PreviousOffset *int          `json:"previous_offset,omitempty"`
}

func toInvoiceDTO(inv *domain.Invoice) *InvoiceDTO {
	return &InvoiceDTO{
		ID:              inv.ID,
		OrderNumber:     inv.OrderNumber,
		OrderType:       string(inv.OrderType),
		Status:          string(inv.Status),
		ProductType:     string(inv.Product.Type),
		Quantity:        inv.Quantity,
		Price:           inv.Price,
		TotalPrice:      inv.TotalPrice,
		DeliveryAddress: inv.DeliveryAddress,
		RecipientName:   inv.RecipientName,
		ContactNumber:   inv.ContactNumber,
		PostalCode:      inv.PostalCode,
		CreatedAt:       inv.CreatedAt,
	}
}
