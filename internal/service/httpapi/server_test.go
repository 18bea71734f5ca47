package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/admin"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

const paymentSecret = "test-secret"

type testAPI struct {
	router    *gin.Engine
	repos     domain.Repositories
	gateway   *payment.MockGateway
	uploadDir string
	cookies   []*http.Cookie
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := memory.NewStore().Repositories()
	gateway := payment.NewMockGateway(paymentSecret)
	uploadDir := t.TempDir()

	router, err := NewRouter(Dependencies{
		Repositories: repos,
		Checkout:     checkout.NewService(repos, gateway),
		Admin:        admin.NewService(repos, admin.Credentials{Username: "admin", Password: "admin123"}, nil),
		Payments:     gateway,
	}, Config{UploadDir: uploadDir, SessionSecret: "session-secret", Backend: "memory", Version: "test"})
	require.NoError(t, err)

	return &testAPI{router: router, repos: repos, gateway: gateway, uploadDir: uploadDir}
}

func (a *testAPI) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	for _, cookie := range a.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var body testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func (a *testAPI) doJSON(t *testing.T, method, path string, payload any) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return a.do(t, req)
}

func (a *testAPI) login(t *testing.T) {
	t.Helper()
	rec, body := a.doJSON(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, body.Success)
	a.cookies = rec.Result().Cookies()
	require.NotEmpty(t, a.cookies)
}

func (a *testAPI) seedProduct(t *testing.T, name string, stock int) domain.Product {
	t.Helper()
	product, err := a.repos.Products.Create(context.Background(), domain.Product{
		Name:     name,
		Price:    decimal.RequireFromString("399.00"),
		Stock:    stock,
		Category: "Food",
	})
	require.NoError(t, err)
	return product
}

func decodeData[T any](t *testing.T, body testResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec, body := api.doJSON(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "memory", decodeData[map[string]any](t, body)["backend"])
}

func TestProductsPublicRoutes(t *testing.T) {
	api := newTestAPI(t)
	rice := api.seedProduct(t, "Rice 5kg", 50)
	api.seedProduct(t, "Olive Oil", 10)

	rec, body := api.doJSON(t, http.MethodGet, "/api/products?search=rice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decodeData[[]domain.Product](t, body)
	require.Len(t, products, 1)
	assert.Equal(t, rice.ID, products[0].ID)

	rec, body = api.doJSON(t, http.MethodGet, "/api/products/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Food"}, decodeData[[]string](t, body))

	rec, body = api.doJSON(t, http.MethodGet, "/api/products/"+rice.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rice 5kg", decodeData[domain.Product](t, body).Name)

	rec, body = api.doJSON(t, http.MethodGet, "/api/products/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, body.Success)
}

func TestProductWritesRequireAdmin(t *testing.T) {
	api := newTestAPI(t)

	rec, body := api.doJSON(t, http.MethodPost, "/api/products", map[string]any{"name": "Rice", "price": "1", "stock": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required. Please log in.", body.Message)

	rec, _ = api.doJSON(t, http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLoginStatusLogout(t *testing.T) {
	api := newTestAPI(t)

	rec, body := api.doJSON(t, http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", body.Message)

	_, body = api.doJSON(t, http.MethodGet, "/api/admin/status", nil)
	assert.False(t, body.Success)

	api.login(t)
	_, body = api.doJSON(t, http.MethodGet, "/api/admin/status", nil)
	assert.True(t, body.Success)
	assert.Equal(t, "admin", decodeData[map[string]any](t, body)["username"])

	rec, _ = api.doJSON(t, http.MethodPost, "/api/admin/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	api.cookies = rec.Result().Cookies()

	rec, _ = api.doJSON(t, http.MethodGet, "/api/admin/customers", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUpdateDeleteProductJSON(t *testing.T) {
	api := newTestAPI(t)
	api.login(t)

	rec, body := api.doJSON(t, http.MethodPost, "/api/products", map[string]any{
		"name":      "Rice 5kg",
		"price":     "399.00",
		"stock":     50,
		"category":  "Food",
		"image_url": "https://cdn.example.com/rice.png",
	})
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)
	created := decodeData[domain.Product](t, body)
	assert.Equal(t, "https://cdn.example.com/rice.png", created.ImagePath)

	rec, body = api.doJSON(t, http.MethodPut, "/api/products/"+created.ID, map[string]any{"stock": 5})
	require.Equal(t, http.StatusOK, rec.Code, body.Message)
	updated := decodeData[domain.Product](t, body)
	assert.Equal(t, 5, updated.Stock)
	assert.Equal(t, "Rice 5kg", updated.Name)

	rec, _ = api.doJSON(t, http.MethodDelete, "/api/products/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = api.doJSON(t, http.MethodDelete, "/api/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProductValidation(t *testing.T) {
	api := newTestAPI(t)
	api.login(t)

	rec, body := api.doJSON(t, http.MethodPost, "/api/products", map[string]any{"name": "R", "price": "-1", "stock": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, domain.ErrProductNameLength.Error())
	assert.Contains(t, body.Message, domain.ErrProductPriceNegative.Error())

	rec, body = api.doJSON(t, http.MethodPost, "/api/products", map[string]any{"name": "Rice"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "price is required")

	rec, body = api.doJSON(t, http.MethodPost, "/api/products", map[string]any{"name": "Rice", "price": "1", "stock": 1, "image_url": "not a url"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errImageURL.Error(), body.Message)
}

func TestCreateProductMultipartUpload(t *testing.T) {
	api := newTestAPI(t)
	api.login(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Rice 5kg"))
	require.NoError(t, form.WriteField("price", "399.00"))
	require.NoError(t, form.WriteField("stock", "50"))
	part, err := form.CreateFormFile("image", "rice.PNG")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec, body := api.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)

	created := decodeData[domain.Product](t, body)
	require.True(t, strings.HasPrefix(created.ImagePath, "/uploads/"))
	assert.True(t, strings.HasSuffix(created.ImagePath, ".png"))

	stored := filepath.Join(api.uploadDir, strings.TrimPrefix(created.ImagePath, "/uploads/"))
	_, err = os.Stat(stored)
	require.NoError(t, err)

	served := httptest.NewRecorder()
	api.router.ServeHTTP(served, httptest.NewRequest(http.MethodGet, created.ImagePath, nil))
	assert.Equal(t, http.StatusOK, served.Code)
}

func TestUpdateMissingProductRemovesUpload(t *testing.T) {
	api := newTestAPI(t)
	api.login(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("stock", "5"))
	part, err := form.CreateFormFile("image", "rice.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/products/missing", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec, body := api.do(t, req)
	require.Equal(t, http.StatusNotFound, rec.Code, body.Message)

	entries, err := os.ReadDir(api.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateProductRejectsSubCentPrice(t *testing.T) {
	api := newTestAPI(t)
	api.login(t)

	rec, body := api.doJSON(t, http.MethodPost, "/api/products", map[string]any{"name": "Rice", "price": "1.005", "stock": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, domain.ErrAmountScale.Error())
}

func TestCreateProductRejectsNonImage(t *testing.T) {
	api := newTestAPI(t)
	api.login(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Rice 5kg"))
	require.NoError(t, form.WriteField("price", "399.00"))
	require.NoError(t, form.WriteField("stock", "50"))
	part, err := form.CreateFormFile("image", "script.sh")
	require.NoError(t, err)
	_, _ = part.Write([]byte("#!/bin/sh"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec, body := api.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errImageType.Error(), body.Message)
}

func orderPayload(productID string, qty int) map[string]any {
	return map[string]any{
		"customer":    map[string]string{"name": "Asha Rao", "email": "asha@example.com"},
		"items":       []map[string]any{{"product_id": productID, "quantity": qty, "price_at_purchase": "399.00"}},
		"totalAmount": decimal.RequireFromString("399.00").Mul(decimal.NewFromInt(int64(qty))).String(),
	}
}

func TestCreateOrderFlow(t *testing.T) {
	api := newTestAPI(t)
	rice := api.seedProduct(t, "Rice 5kg", 50)

	rec, body := api.doJSON(t, http.MethodPost, "/api/orders", orderPayload(rice.ID, 3))
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)
	order := decodeData[domain.OrderView](t, body)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 3, order.TotalItems)

	rec, body = api.doJSON(t, http.MethodGet, "/api/orders/"+order.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeData[domain.OrderView](t, body)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "Rice 5kg", fetched.Items[0].ProductName)

	product, err := api.repos.Products.Get(context.Background(), rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 47, product.Stock)
}

func TestCreateOrderWithVerifiedPayment(t *testing.T) {
	api := newTestAPI(t)
	rice := api.seedProduct(t, "Rice 5kg", 50)

	rec, body := api.doJSON(t, http.MethodPost, "/api/payments/create-order", map[string]any{"amount": "1197.00"})
	require.Equal(t, http.StatusOK, rec.Code, body.Message)
	gatewayOrder := decodeData[payment.Order](t, body)
	assert.Equal(t, int64(119700), gatewayOrder.AmountMinor)
	assert.Equal(t, "INR", gatewayOrder.Currency)

	proof := api.gateway.Pay(gatewayOrder.ID)
	rec, body = api.doJSON(t, http.MethodPost, "/api/payments/verify", proof)
	require.Equal(t, http.StatusOK, rec.Code, body.Message)
	assert.Equal(t, true, decodeData[map[string]any](t, body)["verified"])

	payload := orderPayload(rice.ID, 3)
	payload["payment"] = map[string]any{"orderId": proof.OrderID, "paymentId": proof.PaymentID, "signature": proof.Signature}
	rec, body = api.doJSON(t, http.MethodPost, "/api/orders", payload)
	require.Equal(t, http.StatusCreated, rec.Code, body.Message)
	assert.Equal(t, domain.OrderStatusConfirmed, decodeData[domain.OrderView](t, body).Status)
}

func TestCreateOrderErrors(t *testing.T) {
	api := newTestAPI(t)
	rice := api.seedProduct(t, "Rice 5kg", 2)

	rec, body := api.doJSON(t, http.MethodPost, "/api/orders", orderPayload(rice.ID, 3))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insufficient stock for product Rice 5kg. Available: 2, Requested: 3", body.Message)

	rec, _ = api.doJSON(t, http.MethodPost, "/api/orders", orderPayload("missing", 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = api.doJSON(t, http.MethodPost, "/api/orders", orderPayload(rice.ID, domain.MaxCount+1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, domain.ErrItemQtyTooLarge.Error())

	payload := orderPayload(rice.ID, 1)
	payload["payment"] = map[string]any{"orderId": "order_1", "paymentId": "pay_1", "signature": "deadbeef"}
	rec, body = api.doJSON(t, http.MethodPost, "/api/orders", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.ErrPaymentSignatureInvalid.Error(), body.Message)

	rec, body = api.doJSON(t, http.MethodPost, "/api/orders", map[string]any{"customer": map[string]string{}, "items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, domain.ErrCustomerNameRequired.Error())
	assert.Contains(t, body.Message, domain.ErrItemsRequired.Error())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec, _ = api.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentsWithoutGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repos := memory.NewStore().Repositories()
	router, err := NewRouter(Dependencies{
		Repositories: repos,
		Checkout:     checkout.NewService(repos, nil),
		Admin:        admin.NewService(repos, admin.Credentials{}, nil),
	}, Config{UploadDir: t.TempDir(), SessionSecret: "s"})
	require.NoError(t, err)

	api := &testAPI{router: router, repos: repos}
	rec, _ := api.doJSON(t, http.MethodPost, "/api/payments/create-order", map[string]any{"amount": 10})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminStatsAndExports(t *testing.T) {
	api := newTestAPI(t)
	rice := api.seedProduct(t, "Rice 5kg", 50)
	rec, _ := api.doJSON(t, http.MethodPost, "/api/orders", orderPayload(rice.ID, 2))
	require.Equal(t, http.StatusCreated, rec.Code)

	api.login(t)

	rec, body := api.doJSON(t, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeData[map[string]any](t, body)
	assert.EqualValues(t, 1, stats["totalOrders"])
	assert.EqualValues(t, 48, stats["totalStock"])
	assert.Equal(t, "798", stats["totalRevenue"])

	rec, _ = api.doJSON(t, http.MethodGet, "/api/admin/export/orders?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=orders.csv", rec.Header().Get("Content-Disposition"))
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rec, _ = api.doJSON(t, http.MethodGet, "/api/admin/export/customers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = api.doJSON(t, http.MethodGet, "/api/admin/export/orders?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "unsupported export format")

	rec, body = api.doJSON(t, http.MethodGet, "/api/admin/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]domain.OrderView](t, body), 1)
}

func TestValidationMessage(t *testing.T) {
	err := domain.NewValidationError([]error{domain.ErrCustomerNameRequired, domain.ErrItemsRequired})
	assert.Equal(t, "customer name is required, order must contain at least one item", validationMessage(err))
}

func TestNewRouterRequiresSecret(t *testing.T) {
	_, err := NewRouter(Dependencies{}, Config{UploadDir: t.TempDir()})
	require.Error(t, err)
}
