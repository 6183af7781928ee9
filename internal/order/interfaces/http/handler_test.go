package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/goldtrade/internal/order/application"
	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"gorm.io/gorm"
)

type passTransactor struct{}

func (passTransactor) Transaction(fc func(tx *gorm.DB) error, _ ...*sql.TxOptions) error {
	return fc(nil)
}

type stubInvoiceRepo struct {
	nextID   uint
	invoices map[uint]*domain.Invoice
	deleted  map[uint]bool
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{nextID: 1, invoices: map[uint]*domain.Invoice{}, deleted: map[uint]bool{}}
}

func (r *stubInvoiceRepo) Save(_ context.Context, inv *domain.Invoice) error {
	if inv.ID == 0 {
		inv.ID = r.nextID
		r.nextID++
		inv.CreatedAt = time.Now()
	}
	copied := *inv
	r.invoices[inv.ID] = &copied
	return nil
}

func (r *stubInvoiceRepo) Get(_ context.Context, id uint, _ bool) (*domain.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || r.deleted[id] {
		return nil, domain.ErrOrderNotFound
	}
	copied := *inv
	return &copied, nil
}

func (r *stubInvoiceRepo) List(_ context.Context, filter domain.InvoiceFilter) ([]*domain.Invoice, int64, error) {
	var matched []*domain.Invoice
	for id, inv := range r.invoices {
		if r.deleted[id] {
			continue
		}
		if filter.UserID != "" && inv.UserID != filter.UserID {
			continue
		}
		matched = append(matched, inv)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
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

func (r *stubInvoiceRepo) SoftDelete(_ context.Context, id uint) error {
	r.deleted[id] = true
	return nil
}

type stubProductRepo struct{}

func (stubProductRepo) GetByType(_ context.Context, productType domain.ProductType) (*domain.Product, error) {
	if productType != domain.ProductGold999 {
		return nil, domain.ErrProductUnavailable
	}
	p := &domain.Product{
		Type:                 domain.ProductGold999,
		PurchasePricePerGram: decimal.RequireFromString("512.30"),
		SalePricePerGram:     decimal.RequireFromString("498.75"),
	}
	p.ID = 1
	return p, nil
}

// identityMiddleware 测试用，比照认证中间件把身份写进请求上下文
func identityMiddleware(identity contextx.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(contextx.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

func newTestRouter(repo *stubInvoiceRepo, identity contextx.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("")
	group.Use(identityMiddleware(identity))

	svc := application.NewOrderService(repo, stubProductRepo{}, passTransactor{})
	NewOrderHandler(svc, nil).RegisterRoutes(group)
	return router
}

var (
	aliceIdentity = contextx.Identity{UserID: "user-1", Username: "alice", Role: "USER"}
	bobIdentity   = contextx.Identity{UserID: "user-2", Username: "bob", Role: "USER"}
	adminIdentity = contextx.Identity{UserID: "admin-1", Username: "root", Role: "ADMIN"}
)

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validOrderBody = `{
	"product_type": "GOLD_999",
	"quantity": "2.50",
	"delivery_address": "1 Gold Street",
	"recipient_name": "Alice",
	"contact_number": "555-0101",
	"postal_code": "10001"
}`

func TestCreatePurchaseEndpoint(t *testing.T) {
	repo := newStubInvoiceRepo()
	router := newTestRouter(repo, aliceIdentity)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders/purchase", validOrderBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			OrderNumber string `json:"order_number"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Regexp(t, `^PURCHASE-\d{6}-[0-9A-Z]{5}$`, resp.Data.OrderNumber)

	inv := repo.invoices[1]
	require.Equal(t, "user-1", inv.UserID)
	require.Equal(t, domain.StatusOrderCompleted, inv.Status)
}

func TestCreateSaleEndpoint(t *testing.T) {
	repo := newStubInvoiceRepo()
	router := newTestRouter(repo, aliceIdentity)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders/sale", validOrderBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, domain.OrderTypeSale, repo.invoices[1].OrderType)
}

func TestCreateOrderUnavailableProduct(t *testing.T) {
	router := newTestRouter(newStubInvoiceRepo(), aliceIdentity)

	body := strings.Replace(validOrderBody, "GOLD_999", "GOLD_750", 1)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/orders/purchase", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "product currently unavailable for ordering")
}

func TestGetOrderEndpoint(t *testing.T) {
	repo := newStubInvoiceRepo()
	router := newTestRouter(repo, aliceIdentity)
	doJSON(t, router, http.MethodPost, "/api/v1/orders/purchase", validOrderBody)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/orders/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// 他人访问返回 403
	bobRouter := newTestRouter(repo, bobIdentity)
	rec = doJSON(t, bobRouter, http.MethodGet, "/api/v1/orders/1", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	// 不存在返回 404
	rec = doJSON(t, router, http.MethodGet, "/api/v1/orders/99", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	repo := newStubInvoiceRepo()
	userRouter := newTestRouter(repo, aliceIdentity)
	adminRouter := newTestRouter(repo, adminIdentity)
	doJSON(t, userRouter, http.MethodPost, "/api/v1/orders/purchase", validOrderBody)

	// 管理员推进一步
	rec := doJSON(t, adminRouter, http.MethodPatch, "/api/v1/orders/1/status", `{"status":"PAYMENT_RECEIVED"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// 相同状态为幂等空操作
	rec = doJSON(t, adminRouter, http.MethodPatch, "/api/v1/orders/1/status", `{"status":"PAYMENT_RECEIVED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "already in that state")

	// 非法迁移返回 400
	rec = doJSON(t, adminRouter, http.MethodPatch, "/api/v1/orders/1/status", `{"status":"ITEM_RECEIVED"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid status change")

	// 普通用户无权推进
	rec = doJSON(t, userRouter, http.MethodPatch, "/api/v1/orders/1/status", `{"status":"SHIPPED"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancelOrderEndpoint(t *testing.T) {
	repo := newStubInvoiceRepo()
	router := newTestRouter(repo, aliceIdentity)
	doJSON(t, router, http.MethodPost, "/api/v1/orders/purchase", validOrderBody)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/orders/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// 取消后再查返回 404
	rec = doJSON(t, router, http.MethodGet, "/api/v1/orders/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	// 重复取消返回 404
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/orders/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrdersEndpoint(t *testing.T) {
	repo := newStubInvoiceRepo()
	router := newTestRouter(repo, aliceIdentity)
	for range 25 {
		doJSON(t, router, http.MethodPost, "/api/v1/orders/purchase", validOrderBody)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/orders?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Items      []json.RawMessage `json:"items"`
			TotalCount int64             `json:"total_count"`
			Next       string            `json:"next"`
			Previous   string            `json:"previous"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 10)
	require.EqualValues(t, 25, resp.Data.TotalCount)
	require.Contains(t, resp.Data.Next, "offset=10")
	require.Empty(t, resp.Data.Previous)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/orders?limit=10&offset=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 5)
	require.Empty(t, resp.Data.Next)
	require.Contains(t, resp.Data.Previous, "offset=10")
}

func TestListOrdersBadQuery(t *testing.T) {
	router := newTestRouter(newStubInvoiceRepo(), aliceIdentity)

	for _, path := range []string{
		"/api/v1/orders?limit=0",
		"/api/v1/orders?offset=-1",
		"/api/v1/orders?date=15-01-2024",
		"/api/v1/orders?order_type=TRADE",
	} {
		rec := doJSON(t, router, http.MethodGet, path, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestMissingIdentityRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	svc := application.NewOrderService(newStubInvoiceRepo(), stubProductRepo{}, passTransactor{})
	NewOrderHandler(svc, nil).RegisterRoutes(&router.RouterGroup)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/orders", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
