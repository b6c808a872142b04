package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/application/catalog"
	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/application/ratelimit"
	"github.com/jhoicas/facturacion-api/internal/application/sales"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/memory"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/facturacion-api/pkg/logger"
)

type apiFixture struct {
	app   *fiber.App
	store *memory.Store
}

func newAPI(t *testing.T, rateStore repository.RateLimitStore) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	if rateStore == nil {
		rateStore = store
	}
	limiter := ratelimit.NewLimiter(rateStore, ratelimit.Config{Quota: 10, Window: time.Minute})
	invoices := sales.NewInvoiceUseCase(store, store.Invoices(), store.Ledger(), store.Audit(), logger.Nop())

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(logger.Nop())})
	apphttp.Router(app, apphttp.RouterDeps{
		CreateSale: sales.NewCreateSaleUseCase(
			limiter, store.Products(), store.Invoices(), sales.NewCoordinator(store),
			sales.Config{DefaultTaxRate: sales.DefaultTaxRate}, logger.Nop(),
		),
		Invoices:   invoices,
		InvoicePDF: billing.NewPDFUseCase(invoices, pdf.NewMarotoPDFGenerator(), "Tienda de prueba"),
		Products:   catalog.NewProductUseCase(store, store.Products()),
		Purchases:  catalog.NewPurchaseUseCase(store),
		JWTSecret:  testJWTSecret,
		JWTIssuer:  testIssuer,
	})

	require.NoError(t, store.Products().Create(context.Background(), &entity.Product{
		ID: "P1", CompanyID: testCompanyID, Name: "Café", Price: decimal.NewFromInt(100), Stock: 5, Unit: "und",
	}))
	return &apiFixture{app: app, store: store}
}

func (f *apiFixture) call(t *testing.T, method, path, role string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if role != "" {
		req.Header.Set(fiber.HeaderAuthorization, tokenForRole(t, role))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sale(id string, qty int) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		BusinessID: testCompanyID,
		InvoiceData: dto.InvoiceDataRequest{
			ID:           id,
			CustomerName: "Ana",
			Status:       entity.InvoiceStatusPending,
			Items:        []dto.SaleItemRequest{{ProductID: "P1", Quantity: qty}},
		},
	}
}

func TestSales_CreaVentaYRespondeTotal(t *testing.T) {
	f := newAPI(t, nil)
	id := uuid.NewString()

	resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", sale(id, 2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.CreateSaleResponse](t, resp)
	assert.True(t, out.Success)
	assert.Equal(t, id, out.InvoiceID)
	assert.Equal(t, "236", out.Total.String())

	// El reintento con el mismo id devuelve la misma venta sin descontar otra vez.
	resp = f.call(t, http.MethodPost, "/api/sales", "vendedor", sale(id, 2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	again := decode[dto.CreateSaleResponse](t, resp)
	assert.Equal(t, out.InvoiceID, again.InvoiceID)

	p, err := f.store.Products().GetByID(context.Background(), testCompanyID, "P1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestSales_SinTokenRetorna401(t *testing.T) {
	f := newAPI(t, nil)
	resp := f.call(t, http.MethodPost, "/api/sales", "", sale(uuid.NewString(), 1))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "UNAUTHENTICATED", body.Code)
}

func TestSales_StockInsuficienteConDetalle(t *testing.T) {
	f := newAPI(t, nil)
	resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", sale(uuid.NewString(), 9))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
	details, ok := body.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "P1", details["productId"])
	assert.EqualValues(t, 5, details["available"])
	assert.EqualValues(t, 9, details["requested"])
}

func TestSales_ProductoInexistente404(t *testing.T) {
	f := newAPI(t, nil)
	req := sale(uuid.NewString(), 1)
	req.InvoiceData.Items[0].ProductID = "NOPE"
	resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", req)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "PRODUCT_NOT_FOUND", body.Code)
}

func TestSales_BorradorInvalido400(t *testing.T) {
	f := newAPI(t, nil)
	resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", sale("no-es-uuid", 1))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, resp).Code)
}

func TestSales_LimiteDevuelve429ConRetryAfter(t *testing.T) {
	f := newAPI(t, nil)
	for i := 0; i < 10; i++ {
		resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", sale(uuid.NewString(), 0))
		// Cantidad 0 es error de entrada y no consume cuota.
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}
	for i := 0; i < 10; i++ {
		req := sale(uuid.NewString(), 1)
		req.InvoiceData.Items = []dto.SaleItemRequest{{ProductName: "Domicilio", Quantity: 1}}
		resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", req)
		require.Equal(t, http.StatusCreated, resp.StatusCode, "venta %d", i+1)
		resp.Body.Close()
	}
	resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", sale(uuid.NewString(), 1))
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, "RATE_LIMITED", decode[dto.ErrorResponse](t, resp).Code)
}

type downStore struct{}

func (downStore) Hit(context.Context, string, time.Time, entity.RateLimitRule) (entity.RateLimitWindow, bool, error) {
	return entity.RateLimitWindow{}, false, context.DeadlineExceeded
}

func TestSales_LimitadorCaidoRetorna503(t *testing.T) {
	f := newAPI(t, downStore{})
	resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", sale(uuid.NewString(), 1))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "RATE_LIMIT_UNAVAILABLE", decode[dto.ErrorResponse](t, resp).Code)

	p, err := f.store.Products().GetByID(context.Background(), testCompanyID, "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestInvoices_EstadoPDFyAnulacion(t *testing.T) {
	f := newAPI(t, nil)
	id := uuid.NewString()
	resp := f.call(t, http.MethodPost, "/api/sales", "vendedor", sale(id, 1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.call(t, http.MethodPatch, "/api/invoices/"+id+"/status", "vendedor", dto.UpdateInvoiceStatusRequest{Status: entity.InvoiceStatusPaid})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, entity.InvoiceStatusPaid, decode[dto.InvoiceResponse](t, resp).Status)

	resp = f.call(t, http.MethodGet, "/api/invoices/"+id+"/pdf", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	resp.Body.Close()

	// Solo admin anula.
	resp = f.call(t, http.MethodDelete, "/api/invoices/"+id, "vendedor", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = f.call(t, http.MethodDelete, "/api/invoices/"+id, "admin", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.call(t, http.MethodGet, "/api/invoices/"+id, "admin", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	p, err := f.store.Products().GetByID(context.Background(), testCompanyID, "P1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestPurchases_BodegueroIngresaStock(t *testing.T) {
	f := newAPI(t, nil)
	resp := f.call(t, http.MethodPost, "/api/purchases", "bodeguero", dto.PurchaseRequest{
		Reference:    "OC-1",
		SupplierName: "Proveedor",
		Items:        []dto.PurchaseItemRequest{{ProductID: "P1", Quantity: 4, UnitCost: decimal.NewFromInt(50)}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.call(t, http.MethodGet, "/api/products/P1", "vendedor", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 9, decode[dto.ProductResponse](t, resp).Stock)

	resp = f.call(t, http.MethodGet, "/api/transactions", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ledger := decode[dto.LedgerListResponse](t, resp)
	require.Len(t, ledger.Items, 1)
	assert.Equal(t, entity.LedgerTypePurchase, ledger.Items[0].Type)

	resp = f.call(t, http.MethodPost, "/api/purchases", "vendedor", dto.PurchaseRequest{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
