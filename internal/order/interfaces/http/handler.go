// Package http 提供订单服务的 HTTP 接口
package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/goldtrade/internal/order/application"
	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"github.com/wyfcoding/goldtrade/pkg/logger"
	"github.com/wyfcoding/goldtrade/pkg/metrics"
	"github.com/wyfcoding/goldtrade/pkg/response"
)

// OrderHandler HTTP 处理器
// 负责处理与订单相关的 HTTP 请求，身份由认证中间件写入请求上下文
type OrderHandler struct {
	svc     *application.OrderService
	metrics *metrics.Metrics
}

// NewOrderHandler 创建 HTTP 处理器实例
func NewOrderHandler(svc *application.OrderService, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{svc: svc, metrics: m}
}

// RegisterRoutes 注册路由
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/orders")
	{
		api.GET("", h.ListOrders)                 // 订单列表
		api.GET("/:id", h.GetOrder)               // 订单详情
		api.POST("/purchase", h.CreatePurchase)   // 买入下单
		api.POST("/sale", h.CreateSale)           // 卖出下单
		api.PATCH("/:id/status", h.UpdateStatus)  // 状态变更
		api.DELETE("/:id", h.CancelOrder)         // 取消订单
	}
}

// writeDomainError 领域错误到 HTTP 状态码的统一映射
func (h *OrderHandler) writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, "order not found", "")
	case errors.Is(err, domain.ErrAccessDenied):
		response.ErrorWithStatus(c, http.StatusForbidden, "access denied", "")
	case errors.Is(err, domain.ErrProductUnavailable):
		response.ErrorWithStatus(c, http.StatusBadRequest, "product currently unavailable for ordering", "")
	case errors.Is(err, domain.ErrInvalidStatusChange):
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid status change", "")
	case errors.Is(err, domain.ErrOrderNotCancellable):
		response.ErrorWithStatus(c, http.StatusBadRequest, "order cannot be cancelled in its current status", "")
	case errors.Is(err, domain.ErrInvalidQuantity):
		response.ErrorWithStatus(c, http.StatusBadRequest, "quantity must be positive, at most 9999999.99, with at most 2 decimal places", "")
	case errors.Is(err, domain.ErrDuplicateOrderNumber):
		response.ErrorWithStatus(c, http.StatusConflict, "order number collision, please retry", "")
	default:
		logger.Error(c.Request.Context(), "Order operation failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal error", "")
	}
}

func identityFrom(c *gin.Context) (contextx.Identity, bool) {
	identity, ok := contextx.IdentityFrom(c.Request.Context())
	if !ok {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "missing identity", "")
	}
	return identity, ok
}

// ListOrders 订单列表
// 支持按创建日（YYYY-MM-DD）与订单类型过滤
func (h *OrderHandler) ListOrders(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	query := application.ListOrdersQuery{Limit: 10, Offset: 0}

	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "date must be in YYYY-MM-DD format", "")
			return
		}
		query.Date = &date
	}
	if raw := c.Query("order_type"); raw != "" {
		orderType := domain.OrderType(raw)
		if !orderType.IsValid() {
			response.ErrorWithStatus(c, http.StatusBadRequest, "order_type must be PURCHASE or SALE", "")
			return
		}
		query.OrderType = orderType
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			response.ErrorWithStatus(c, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		query.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			response.ErrorWithStatus(c, http.StatusBadRequest, "offset must be a non-negative integer", "")
			return
		}
		query.Offset = offset
	}

	result, err := h.svc.Query.ListOrders(c.Request.Context(), identity, query)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}

	response.Success(c, gin.H{
		"items":       result.Items,
		"total_count": result.TotalCount,
		"next":        pageLink(c, result.NextOffset, query.Limit),
		"previous":    pageLink(c, result.PreviousOffset, query.Limit),
	})
}

// pageLink 由偏移量构造翻页链接，偏移量为 nil 时返回空串
func pageLink(c *gin.Context, offset *int, limit int) string {
	if offset == nil {
		return ""
	}
	q := c.Request.URL.Query()
	q.Set("offset", strconv.Itoa(*offset))
	q.Set("limit", strconv.Itoa(limit))
	return fmt.Sprintf("%s?%s", c.Request.URL.Path, q.Encode())
}

// GetOrder 订单详情
func (h *OrderHandler) GetOrder(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	orderID, err := parseOrderID(c)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid order id", "")
		return
	}

	dto, err := h.svc.Query.GetOrder(c.Request.Context(), identity, orderID)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}

	response.Success(c, dto)
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	ProductType     string          `json:"product_type" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	DeliveryAddress string          `json:"delivery_address" binding:"required,max=255"`
	RecipientName   string          `json:"recipient_name" binding:"required,max=100"`
	ContactNumber   string          `json:"contact_number" binding:"required,max=20"`
	PostalCode      string          `json:"postal_code" binding:"required,max=10"`
}

// CreatePurchase 买入下单
func (h *OrderHandler) CreatePurchase(c *gin.Context) {
	h.createOrder(c, domain.OrderTypePurchase)
}

// CreateSale 卖出下单
func (h *OrderHandler) CreateSale(c *gin.Context) {
	h.createOrder(c, domain.OrderTypeSale)
}

func (h *OrderHandler) createOrder(c *gin.Context, orderType domain.OrderType) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	orderNumber, err := h.svc.Command.CreateOrder(c.Request.Context(), identity, application.CreateOrderCommand{
		OrderType:       orderType,
		ProductType:     domain.ProductType(req.ProductType),
		Quantity:        req.Quantity,
		DeliveryAddress: req.DeliveryAddress,
		RecipientName:   req.RecipientName,
		ContactNumber:   req.ContactNumber,
		PostalCode:      req.PostalCode,
	})
	if err != nil {
		h.writeDomainError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.OrdersCreatedTotal.Inc()
	}
	response.SuccessWithMessage(c, http.StatusCreated, "order created", gin.H{"order_number": orderNumber})
}

// UpdateStatusRequest 状态变更请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 状态变更
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	orderID, err := parseOrderID(c)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid order id", "")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.svc.Command.UpdateStatus(c.Request.Context(), identity, application.UpdateStatusCommand{
		OrderID:   orderID,
		NewStatus: domain.OrderStatus(req.Status),
	})
	if err != nil {
		h.writeDomainError(c, err)
		return
	}

	if result.Unchanged {
		response.SuccessWithMessage(c, http.StatusOK, "order already in that state", gin.H{"status": result.Status})
		return
	}

	if h.metrics != nil {
		h.metrics.StatusChangesTotal.Inc()
	}
	response.SuccessWithMessage(c, http.StatusOK, "status updated", gin.H{"status": result.Status})
}

// CancelOrder 取消订单
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		return
	}

	orderID, err := parseOrderID(c)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid order id", "")
		return
	}

	if err := h.svc.Command.CancelOrder(c.Request.Context(), identity, orderID); err != nil {
		h.writeDomainError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.OrdersCancelledTotal.Inc()
	}
	response.SuccessWithMessage(c, http.StatusOK, "order cancelled", nil)
}

func parseOrderID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
