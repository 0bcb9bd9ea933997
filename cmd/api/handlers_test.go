package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/stock-service/internal/application"
	"github.com/retail-platform/stock-service/internal/infrastructure/catalog"
	"github.com/retail-platform/stock-service/internal/infrastructure/locking"
	"github.com/retail-platform/stock-service/pkg/api"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
	"github.com/retail-platform/stock-service/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T, ttl time.Duration) *testAPI {
	t.Helper()

	logger := logging.NewNop()
	m := metrics.New(metrics.DefaultConfig("test"))
	store := openMemory()

	service := application.NewStockService(
		store.repos,
		catalog.NoopValidator{},
		locking.NewKeyedMutex(time.Second),
		application.StockServiceConfig{ReservationTTL: ttl},
		logger,
		m,
	)
	sweeper := application.NewExpirationSweeper(service, store.repos.Reservations, application.DefaultSweeperConfig(), logger, m)

	return &testAPI{t: t, router: newRouter(service, sweeper, m, logger, func() error { return nil })}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testAPI) createStock(productID int64, initial int) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/admin/stock", map[string]any{"productId": productID, "initialQuantity": initial})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *testAPI) reserve(productID, orderID int64, quantity int) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/api/stock/reserve", map[string]any{
		"productId": productID, "orderId": orderID, "quantity": quantity,
	})
}

func TestReserveConfirmFlow(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)
	a.createStock(1, 20)

	w := a.reserve(1, 7, 5)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reservation := decode[application.ReservationDTO](t, w)
	assert.Equal(t, "ACTIVE", reservation.Status)
	require.NotNil(t, reservation.ExpiresAt)

	w = a.do(http.MethodGet, "/api/stock/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stock := decode[application.StockDTO](t, w)
	assert.Equal(t, 15, stock.AvailableQuantity)
	assert.Equal(t, 5, stock.ReservedQuantity)
	assert.Equal(t, 20, stock.PhysicalQuantity)

	w = a.do(http.MethodPost, "/api/stock/confirm/"+reservation.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CONFIRMED", decode[application.ReservationDTO](t, w).Status)

	w = a.do(http.MethodGet, "/api/stock/1", nil)
	stock = decode[application.StockDTO](t, w)
	assert.Equal(t, 15, stock.AvailableQuantity)
	assert.Equal(t, 0, stock.ReservedQuantity)
	assert.Equal(t, 15, stock.PhysicalQuantity)

	w = a.do(http.MethodPost, "/api/stock/confirm/"+reservation.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_RESERVATION_STATE", decode[middleware.APIErrorResponse](t, w).Code)

	w = a.do(http.MethodGet, "/api/stock/reservation/"+reservation.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CONFIRMED", decode[application.ReservationDTO](t, w).Status)
}

func TestReserveInsufficientStock(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)
	a.createStock(1, 2)

	w := a.reserve(1, 7, 3)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[middleware.APIErrorResponse](t, w).Code)
}

func TestReserveValidation(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)
	a.createStock(1, 10)

	w := a.reserve(1, 7, 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[middleware.APIErrorResponse](t, w)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Details, "quantity")

	w = a.reserve(99, 7, 1)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_UNKNOWN", decode[middleware.APIErrorResponse](t, w).Code)
}

func TestReleaseByOrder(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)
	a.createStock(1, 10)
	a.createStock(2, 10)

	require.Equal(t, http.StatusCreated, a.reserve(1, 42, 3).Code)
	require.Equal(t, http.StatusCreated, a.reserve(2, 42, 4).Code)

	w := a.do(http.MethodPost, "/api/stock/release/order/42", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["released"])

	w = a.do(http.MethodGet, "/api/stock/reservations/42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, r := range decode[[]application.ReservationDTO](t, w) {
		assert.Equal(t, "RELEASED", r.Status)
	}

	w = a.do(http.MethodGet, "/api/stock/2", nil)
	assert.Equal(t, 10, decode[application.StockDTO](t, w).AvailableQuantity)

	w = a.do(http.MethodPost, "/api/stock/release/order/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdjustAndMovements(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)
	a.createStock(1, 10)

	w := a.do(http.MethodPost, "/api/stock/1/adjust", map[string]any{"movementType": "IN", "quantity": 5, "referenceType": "PURCHASE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 15, decode[application.StockDTO](t, w).AvailableQuantity)

	w = a.do(http.MethodPost, "/api/stock/1/adjust", map[string]any{"movementType": "ADJUSTMENT", "quantity": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 4, decode[application.StockDTO](t, w).AvailableQuantity)

	w = a.do(http.MethodPost, "/api/stock/1/adjust", map[string]any{"movementType": "RESERVE", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/stock/1/movements?page=1&pageSize=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[api.PageResponse[application.MovementDTO]](t, w)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "ADJUSTMENT", page.Data[0].MovementType)
	assert.Equal(t, "IN", page.Data[1].MovementType)
	assert.True(t, page.HasNext)
}

func TestCreateStockAndAlerts(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)

	w := a.do(http.MethodPost, "/api/admin/stock", map[string]any{"productId": 1, "initialQuantity": 3})
	require.Equal(t, http.StatusCreated, w.Code)
	stock := decode[application.StockDTO](t, w)
	assert.Equal(t, 10, stock.MinimumQuantity)
	assert.True(t, stock.IsLowStock)

	w = a.do(http.MethodPost, "/api/admin/stock", map[string]any{"productId": 1, "initialQuantity": 3})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_STOCK", decode[middleware.APIErrorResponse](t, w).Code)

	w = a.do(http.MethodGet, "/api/admin/stock/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]application.LowStockAlertDTO](t, w), 1)

	w = a.do(http.MethodGet, "/api/stock/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]application.StockDTO](t, w), 1)

	w = a.do(http.MethodPut, "/api/admin/stock/1/minimum", map[string]any{"minimumQuantity": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[application.StockDTO](t, w).IsLowStock)

	w = a.do(http.MethodGet, "/api/admin/stock/alerts", nil)
	assert.Empty(t, decode[[]application.LowStockAlertDTO](t, w))

	w = a.do(http.MethodPut, "/api/admin/stock/1/minimum", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListStockPagination(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)
	for id := int64(1); id <= 3; id++ {
		a.createStock(id, 50)
	}

	w := a.do(http.MethodGet, "/api/stock?page=2&pageSize=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[api.PageResponse[application.StockDTO]](t, w)
	assert.EqualValues(t, 3, page.TotalItems)
	assert.EqualValues(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.EqualValues(t, 3, page.Data[0].ProductID)
}

func TestSweepEndpoint(t *testing.T) {
	a := newTestAPI(t, time.Millisecond)
	a.createStock(1, 10)
	require.Equal(t, http.StatusCreated, a.reserve(1, 7, 4).Code)

	time.Sleep(10 * time.Millisecond)

	w := a.do(http.MethodPost, "/api/admin/stock/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[application.SweepReport](t, w)
	assert.Equal(t, 1, report.Found)
	assert.Equal(t, 1, report.Processed)

	w = a.do(http.MethodGet, "/api/stock/1", nil)
	stock := decode[application.StockDTO](t, w)
	assert.Equal(t, 10, stock.AvailableQuantity)
	assert.Equal(t, 0, stock.ReservedQuantity)
}

func TestUnknownStockAndBadIDs(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)

	w := a.do(http.MethodGet, "/api/stock/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/stock/-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/stock/release/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	a := newTestAPI(t, 30*time.Minute)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/metrics", nil).Code)

	m := metrics.New(metrics.DefaultConfig("test"))
	router := newRouter(nil, nil, m, logging.NewNop(), func() error { return errors.New("db down") })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
