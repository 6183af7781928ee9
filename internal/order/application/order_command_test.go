package application

import (
	"context"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
)

var (
	adminIdentity = contextx.Identity{UserID: "admin-1", Username: "admin", Role: "ADMIN"}
	userIdentity  = contextx.Identity{UserID: "user-1", Username: "alice", Role: "USER"}
	otherIdentity = contextx.Identity{UserID: "user-2", Username: "bob", Role: "USER"}
)

func goldProduct() *domain.Product {
	p := &domain.Product{
		Type:                 domain.ProductGold999,
		PurchasePricePerGram: decimal.RequireFromString("512.30"),
		SalePricePerGram:     decimal.RequireFromString("498.75"),
	}
	p.ID = 1
	return p
}

func newCommandService(invoices *memInvoiceRepo) *OrderCommandService {
	return NewOrderCommandService(invoices, newMemProductRepo(goldProduct()), fakeTransactor{})
}

func createTestOrder(t *testing.T, invoices *memInvoiceRepo, identity contextx.Identity, orderType domain.OrderType) *domain.Invoice {
	t.Helper()
	svc := newCommandService(invoices)
	orderNumber, err := svc.CreateOrder(context.Background(), identity, CreateOrderCommand{
		OrderType:       orderType,
		ProductType:     domain.ProductGold999,
		Quantity:        decimal.RequireFromString("2.50"),
		DeliveryAddress: "1 Gold Street",
		RecipientName:   "Alice",
		ContactNumber:   "555-0101",
		PostalCode:      "10001",
	})
	require.NoError(t, err)

	for _, inv := range invoices.invoices {
		if inv.OrderNumber == orderNumber {
			return inv
		}
	}
	t.Fatalf("created order %s not found in repository", orderNumber)
	return nil
}

func TestCreateOrder(t *testing.T) {
	invoices := newMemInvoiceRepo()
	svc := newCommandService(invoices)

	orderNumber, err := svc.CreateOrder(context.Background(), userIdentity, CreateOrderCommand{
		OrderType:       domain.OrderTypePurchase,
		ProductType:     domain.ProductGold999,
		Quantity:        decimal.RequireFromString("2.50"),
		DeliveryAddress: "1 Gold Street",
		RecipientName:   "Alice",
		ContactNumber:   "555-0101",
		PostalCode:      "10001",
	})
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^PURCHASE-\d{6}-[0-9A-Z]{5}$`), orderNumber)

	inv := invoices.invoices[1]
	require.NotNil(t, inv)
	require.Equal(t, domain.StatusOrderCompleted, inv.Status)
	require.Equal(t, "user-1", inv.UserID)
	require.True(t, inv.Price.Equal(decimal.RequireFromString("512.30")))
	require.True(t, inv.TotalPrice.Equal(decimal.RequireFromString("1280.75")))
}

func TestCreateOrderSaleUsesSalePrice(t *testing.T) {
	invoices := newMemInvoiceRepo()
	svc := newCommandService(invoices)

	orderNumber, err := svc.CreateOrder(context.Background(), userIdentity, CreateOrderCommand{
		OrderType:       domain.OrderTypeSale,
		ProductType:     domain.ProductGold999,
		Quantity:        decimal.RequireFromString("3"),
		DeliveryAddress: "1 Gold Street",
		RecipientName:   "Alice",
		ContactNumber:   "555-0101",
		PostalCode:      "10001",
	})
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^SALE-`), orderNumber)

	inv := invoices.invoices[1]
	require.True(t, inv.Price.Equal(decimal.RequireFromString("498.75")))
	require.True(t, inv.TotalPrice.Equal(decimal.RequireFromString("1496.25")))
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	svc := NewOrderCommandService(newMemInvoiceRepo(), newMemProductRepo(), fakeTransactor{})

	_, err := svc.CreateOrder(context.Background(), userIdentity, CreateOrderCommand{
		OrderType:       domain.OrderTypePurchase,
		ProductType:     domain.ProductGold9999,
		Quantity:        decimal.RequireFromString("1"),
		DeliveryAddress: "a",
		RecipientName:   "b",
		ContactNumber:   "c",
		PostalCode:      "d",
	})
	require.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestCreateOrderInvalidQuantity(t *testing.T) {
	invoices := newMemInvoiceRepo()
	svc := newCommandService(invoices)

	for _, quantity := range []string{"0", "-2", "1.005", "10000000"} {
		_, err := svc.CreateOrder(context.Background(), userIdentity, CreateOrderCommand{
			OrderType:   domain.OrderTypePurchase,
			ProductType: domain.ProductGold999,
			Quantity:    decimal.RequireFromString(quantity),
		})
		require.ErrorIs(t, err, domain.ErrInvalidQuantity, "quantity %s", quantity)
	}
	require.Zero(t, invoices.saves)
}

func TestUpdateStatusAdminWalksPurchaseBranch(t *testing.T) {
	invoices := newMemInvoiceRepo()
	inv := createTestOrder(t, invoices, userIdentity, domain.OrderTypePurchase)
	svc := newCommandService(invoices)

	for _, next := range []domain.OrderStatus{domain.StatusPaymentReceived, domain.StatusShipped} {
		result, err := svc.UpdateStatus(context.Background(), adminIdentity, UpdateStatusCommand{
			OrderID:   inv.ID,
			NewStatus: next,
		})
		require.NoError(t, err)
		require.False(t, result.Unchanged)
		require.Equal(t, next, result.Status)
	}

	stored, err := invoices.Get(context.Background(), inv.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.StatusShipped, stored.Status)
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	invoices := newMemInvoiceRepo()
	inv := createTestOrder(t, invoices, userIdentity, domain.OrderTypePurchase)
	svc := newCommandService(invoices)

	savesBefore := invoices.saves
	result, err := svc.UpdateStatus(context.Background(), adminIdentity, UpdateStatusCommand{
		OrderID:   inv.ID,
		NewStatus: domain.StatusOrderCompleted,
	})
	require.NoError(t, err)
	require.True(t, result.Unchanged)
	require.Equal(t, domain.StatusOrderCompleted, result.Status)
	require.Equal(t, savesBefore, invoices.saves, "no-op must not write")
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	invoices := newMemInvoiceRepo()
	inv := createTestOrder(t, invoices, userIdentity, domain.OrderTypePurchase)
	svc := newCommandService(invoices)

	// 跳步与跨分支都不是状态图中的边
	for _, target := range []domain.OrderStatus{domain.StatusShipped, domain.StatusPaymentSent, domain.StatusItemReceived} {
		_, err := svc.UpdateStatus(context.Background(), adminIdentity, UpdateStatusCommand{
			OrderID:   inv.ID,
			NewStatus: target,
		})
		require.ErrorIs(t, err, domain.ErrInvalidStatusChange, "target %s", target)
	}
}

func TestUpdateStatusNonAdminCannotAdvance(t *testing.T) {
	invoices := newMemInvoiceRepo()
	inv := createTestOrder(t, invoices, userIdentity, domain.OrderTypePurchase)
	svc := newCommandService(invoices)

	_, err := svc.UpdateStatus(context.Background(), userIdentity, UpdateStatusCommand{
		OrderID:   inv.ID,
		NewStatus: domain.StatusPaymentReceived,
	})
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestUpdateStatusStrangerDenied(t *testing.T) {
	invoices := newMemInvoiceRepo()
	inv := createTestOrder(t, invoices, userIdentity, domain.OrderTypePurchase)
	svc := newCommandService(invoices)

	_, err := svc.UpdateStatus(context.Background(), otherIdentity, UpdateStatusCommand{
		OrderID:   inv.ID,
		NewStatus: domain.StatusOrderCompleted,
	})
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := newCommandService(newMemInvoiceRepo())

	_, err := svc.UpdateStatus(context.Background(), adminIdentity, UpdateStatusCommand{
		OrderID:   42,
		NewStatus: domain.StatusPaymentReceived,
	})
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelOrder(t *testing.T) {
	invoices := newMemInvoiceRepo()
	inv := createTestOrder(t, invoices, userIdentity, domain.OrderTypePurchase)
	svc := newCommandService(invoices)

	require.NoError(t, svc.CancelOrder(context.Background(), userIdentity, inv.ID))

	_, err := invoices.Get(context.Background(), inv.ID, false)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	// 已删除订单视为不存在，重复取消返回未找到
	err = svc.CancelOrder(context.Background(), userIdentity, inv.ID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelOrderStrangerDenied(t *testing.T) {
	invoices := newMemInvoiceRepo()
	inv := createTestOrder(t, invoices, userIdentity, domain.OrderTypePurchase)
	svc := newCommandService(invoices)

	err := svc.CancelOrder(context.Background(), otherIdentity, inv.ID)
	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestCancelOrderTerminalStatusRejected(t *testing.T) {
	invoices := newMemInvoiceRepo()
	inv := createTestOrder(t, invoices, userIdentity, domain.OrderTypePurchase)
	svc := newCommandService(invoices)

	for _, next := range []domain.OrderStatus{domain.StatusPaymentReceived, domain.StatusShipped} {
		_, err := svc.UpdateStatus(context.Background(), adminIdentity, UpdateStatusCommand{OrderID: inv.ID, NewStatus: next})
		require.NoError(t, err)
	}

	err := svc.CancelOrder(context.Background(), adminIdentity, inv.ID)
	require.ErrorIs(t, err, domain.ErrOrderNotCancellable)
}
