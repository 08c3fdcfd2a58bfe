package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/notification"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/test").
		GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }).
		DELETE("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })

	NewRouter(engine, WithAPIVersion("v1")).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/test/abc", nil))
	assert.Equal(t, "abc", w.Body.String())
}

func TestDomainGroupMiddleware(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("guarded", "/guarded").
		Use(func(c *gin.Context) { c.Header("X-Guarded", "yes") }).
		GET("", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	assert.Equal(t, "guarded", group.Name())
	assert.Equal(t, "/guarded", group.Prefix())

	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/guarded", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "yes", w.Header().Get("X-Guarded"))
}

// apiFixture serves the full API over an in-memory store
type apiFixture struct {
	engine  *gin.Engine
	service *inventoryapp.InventoryService
	feed    *notification.Feed
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := zap.NewNop()

	bus := event.NewInMemoryEventBus(log)
	feed := notification.NewFeed(50)
	emitter := notification.NewEmitter(log).AddNotifySink(feed).AddToastSink(feed)
	bus.Subscribe(notification.NewNotificationHandler(emitter, log))
	bus.Subscribe(notification.NewToastHandler(emitter, log))

	manager := persistence.NewManager(persistence.NewMemoryStore(0), persistence.DefaultConfig(),
		persistence.WithEventPublisher(bus))
	svc := inventoryapp.NewInventoryService(inventory.NewInventoryStore(), manager, log)
	svc.SetEventPublisher(bus)
	svc.SetImageFetcher(manager)

	engine, err := NewEngine(EngineConfig{
		Logger:      log,
		ServiceName: "stock-ledger-test",
		MaxBodySize: 1 << 20,
		Registry:    prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	Mount(engine, Handlers{
		Products:    handler.NewProductHandler(svc),
		Categories:  handler.NewCategoryHandler(svc),
		Suppliers:   handler.NewSupplierHandler(svc),
		Adjustments: handler.NewAdjustmentHandler(svc),
		System:      handler.NewSystemHandler(svc, feed, "stock-ledger", "test"),
	})

	return &apiFixture{engine: engine, service: svc, feed: feed}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func dataList(t *testing.T, resp dto.Response) []any {
	t.Helper()
	l, ok := resp.Data.([]any)
	require.True(t, ok, "data is %T", resp.Data)
	return l
}

func TestAPI_ProductLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	w, resp := f.do(t, "POST", "/api/v1/categories", gin.H{"name": "Tools"})
	require.Equal(t, http.StatusCreated, w.Code)
	categoryID := dataMap(t, resp)["id"].(string)

	w, resp = f.do(t, "POST", "/api/v1/products", gin.H{
		"sku": "HAM-01", "name": "Hammer", "categoryId": categoryID,
		"price": 12.5, "quantity": "10", "reorderLevel": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	product := dataMap(t, resp)
	productID := product["id"].(string)
	assert.Equal(t, "10", product["quantity"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w, resp = f.do(t, "GET", "/api/v1/products/"+productID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hammer", dataMap(t, resp)["name"])

	w, resp = f.do(t, "GET", "/api/v1/products/search?q=ham", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, resp), 1)
	assert.Equal(t, 1, resp.Meta.Total)

	w, resp = f.do(t, "GET", "/api/v1/categories/"+categoryID+"/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, resp), 1)

	w, resp = f.do(t, "PUT", "/api/v1/products/"+productID, gin.H{"name": "Claw Hammer"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Claw Hammer", dataMap(t, resp)["name"])

	w, _ = f.do(t, "DELETE", "/api/v1/categories/"+categoryID, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "category still holds a product")

	w, _ = f.do(t, "DELETE", "/api/v1/products/"+productID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, resp = f.do(t, "GET", "/api/v1/products/"+productID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)

	w, resp = f.do(t, "GET", "/api/v1/products/"+productID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, resp), 1, "opening entry survives deletion")

	w, resp = f.do(t, "DELETE", "/api/v1/categories/"+categoryID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, dataMap(t, resp)["deleted"])
}

func TestAPI_StockAdjustments(t *testing.T) {
	f := newAPIFixture(t)

	_, resp := f.do(t, "POST", "/api/v1/products", gin.H{
		"sku": "ST-1", "name": "Stapler", "quantity": 10, "reorderLevel": 8,
	})
	productID := dataMap(t, resp)["id"].(string)

	w, resp := f.do(t, "POST", "/api/v1/adjustments", gin.H{
		"productId": productID, "type": "SALE", "quantity": 3, "reason": "counter sale",
	}, middleware.OperatorHeader, "alice")
	require.Equal(t, http.StatusCreated, w.Code)
	entry := dataMap(t, resp)
	assert.Equal(t, "-3", entry["quantity"])
	assert.Equal(t, "7", entry["newStock"])
	assert.Equal(t, "alice", entry["user"])

	w, resp = f.do(t, "POST", "/api/v1/adjustments", gin.H{
		"productId": productID, "type": "Restock", "quantity": "5",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "12", dataMap(t, resp)["newStock"])

	w, resp = f.do(t, "POST", "/api/v1/adjustments", gin.H{
		"productId": productID, "type": "THEFT", "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	w, resp = f.do(t, "POST", "/api/v1/adjustments", gin.H{"type": "SALE", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, resp.Error.Details)
	assert.Equal(t, "productId", resp.Error.Details[0].Field)

	w, resp = f.do(t, "GET", "/api/v1/adjustments?product_id="+productID+"&type=SALE", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataList(t, resp), 1)

	w, resp = f.do(t, "GET", "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	kinds := map[string]int{}
	for _, n := range dataMap(t, resp)["notifications"].([]any) {
		kinds[n.(map[string]any)["kind"].(string)]++
	}
	assert.Equal(t, 1, kinds[string(notification.KindProductCreated)])
	assert.Equal(t, 2, kinds[string(notification.KindStockAdjusted)])
	assert.Equal(t, 1, kinds[string(notification.KindLowStock)], "the sale crossed the reorder level once")

	toasts := dataMap(t, resp)["toasts"].([]any)
	require.NotEmpty(t, toasts)
	assert.Equal(t, "Stock for Stapler is now 12", toasts[0].(map[string]any)["message"])
}

func TestAPI_ApplyPayment(t *testing.T) {
	f := newAPIFixture(t)

	_, resp := f.do(t, "POST", "/api/v1/products", gin.H{"sku": "PEN-1", "name": "Pen", "quantity": 10})
	productID := dataMap(t, resp)["id"].(string)

	w, resp := f.do(t, "POST", "/api/v1/payments/apply", gin.H{
		"id": "inv-1", "number": "1001", "status": "paid",
		"items": []gin.H{
			{"productId": productID, "description": "Pen", "quantity": 4},
			{"sku": "PEN-1", "description": "More pens", "quantity": 20},
			{"description": "Gift wrap", "quantity": 1},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	result := dataMap(t, resp)
	assert.Equal(t, float64(1), result["recorded"])
	assert.Equal(t, float64(2), result["skipped"])

	_, resp = f.do(t, "GET", "/api/v1/products/"+productID, nil)
	assert.Equal(t, "6", dataMap(t, resp)["quantity"])

	w, _ = f.do(t, "POST", "/api/v1/payments/apply", gin.H{"id": "inv-2", "status": "draft"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Suppliers(t *testing.T) {
	f := newAPIFixture(t)

	w, resp := f.do(t, "POST", "/api/v1/suppliers", gin.H{"name": "Acme", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email", resp.Error.Details[0].Field)

	_, resp = f.do(t, "POST", "/api/v1/suppliers", gin.H{"name": "Acme", "email": "sales@acme.test"})
	supplierID := dataMap(t, resp)["id"].(string)

	_, resp = f.do(t, "POST", "/api/v1/products", gin.H{"sku": "BOLT", "name": "Bolt"})
	productID := dataMap(t, resp)["id"].(string)

	w, resp = f.do(t, "POST", "/api/v1/suppliers/"+supplierID+"/products", gin.H{"productId": productID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, dataMap(t, resp)["added"])

	w, resp = f.do(t, "POST", "/api/v1/suppliers/"+supplierID+"/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), dataMap(t, resp)["orderCount"])

	w, _ = f.do(t, "DELETE", "/api/v1/suppliers/"+supplierID, nil)
	assert.Equal(t, http.StatusOK, w.Code, "linked products do not reference the supplier")
}

func TestAPI_AdminAndSystem(t *testing.T) {
	f := newAPIFixture(t)

	w, resp := f.do(t, "POST", "/api/v1/admin/seed-defaults", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, dataMap(t, resp)["seeded"])

	_, resp = f.do(t, "GET", "/api/v1/categories", nil)
	assert.NotEmpty(t, dataList(t, resp))

	w, resp = f.do(t, "GET", "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), dataMap(t, resp)["totalProducts"])

	w, _ = f.do(t, "POST", "/api/v1/admin/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, resp = f.do(t, "GET", "/api/v1/categories", nil)
	assert.Empty(t, dataList(t, resp))

	w, _ = f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stockledger_http_requests_total")

	w, resp = f.do(t, "GET", "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestNewEngine_BodyLimitAndRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()

	engine, err := NewEngine(EngineConfig{MaxBodySize: 16, Limiter: limiter})
	require.NoError(t, err)
	engine.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("POST", "/echo", bytes.NewReader(bytes.Repeat([]byte("x"), 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// Oversized bodies are refused before a token is taken
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("POST", "/echo", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("POST", "/echo", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestInventoryRoutes(t *testing.T) {
	svc := inventoryapp.NewInventoryService(inventory.NewInventoryStore(),
		persistence.NewManager(persistence.NewMemoryStore(0), persistence.DefaultConfig()), zap.NewNop())
	groups := InventoryRoutes(Handlers{
		Products:    handler.NewProductHandler(svc),
		Categories:  handler.NewCategoryHandler(svc),
		Suppliers:   handler.NewSupplierHandler(svc),
		Adjustments: handler.NewAdjustmentHandler(svc),
		System:      handler.NewSystemHandler(svc, notification.NewFeed(1), "x", "y"),
	})
	assert.Len(t, groups, 7)
}
