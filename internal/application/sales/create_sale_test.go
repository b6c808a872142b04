package sales_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/application/ratelimit"
	"github.com/jhoicas/facturacion-api/internal/application/sales"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/memory"
	"github.com/jhoicas/facturacion-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCompanyID = "empresa-1"
	testUserID    = "usuario-1"
)

var principal = entity.Principal{UserID: testUserID, CompanyID: testCompanyID, Role: entity.RoleVendedor}

type countingLimiter struct {
	calls atomic.Int32
	err   error
}

func (l *countingLimiter) Admit(context.Context, string) error {
	l.calls.Add(1)
	return l.err
}

type brokenRateStore struct{}

func (brokenRateStore) Hit(context.Context, string, time.Time, entity.RateLimitRule) (entity.RateLimitWindow, bool, error) {
	return entity.RateLimitWindow{}, false, errors.New("redis: connection refused")
}

type fixture struct {
	store   *memory.Store
	useCase *sales.CreateSaleUseCase
	invoice *sales.InvoiceUseCase
}

func newFixture(t *testing.T, limiter sales.RateLimiter) *fixture {
	t.Helper()
	store := memory.NewStore()
	if limiter == nil {
		limiter = ratelimit.NewLimiter(store, ratelimit.Config{Quota: 10_000})
	}
	return newFixtureWithCatalog(t, store, limiter, store.Products())
}

func newFixtureWithCatalog(t *testing.T, store *memory.Store, limiter sales.RateLimiter, catalog sales.CatalogReader) *fixture {
	t.Helper()
	uc := sales.NewCreateSaleUseCase(
		limiter, catalog, store.Invoices(), sales.NewCoordinator(store),
		sales.Config{DefaultTaxRate: sales.DefaultTaxRate, MaxCommitAttempts: 3},
		logger.Nop(),
	)
	inv := sales.NewInvoiceUseCase(store, store.Invoices(), store.Ledger(), store.Audit(), logger.Nop())
	return &fixture{store: store, useCase: uc, invoice: inv}
}

func (f *fixture) seed(t *testing.T, id string, price int64, stock int) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.store.Products().Create(context.Background(), &entity.Product{
		ID: id, CompanyID: testCompanyID, Name: "Producto " + id,
		Price: decimal.NewFromInt(price), Stock: stock, Unit: "und", CreatedAt: now, UpdatedAt: now,
	}))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), testCompanyID, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func (f *fixture) counts(t *testing.T) (invoices, ledger, audit int) {
	t.Helper()
	ctx := context.Background()
	invs, err := f.store.Invoices().ListByCompany(ctx, testCompanyID, 0, 0)
	require.NoError(t, err)
	entries, err := f.store.Ledger().ListByCompany(ctx, testCompanyID, 0, 0)
	require.NoError(t, err)
	logs, err := f.store.Audit().ListByCompany(ctx, testCompanyID, 0, 0)
	require.NoError(t, err)
	return len(invs), len(entries), len(logs)
}

func saleRequest(id, status string, items ...dto.SaleItemRequest) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		BusinessID: testCompanyID,
		InvoiceData: dto.InvoiceDataRequest{
			ID:           id,
			InvoiceNo:    "F-001",
			Date:         "2024-03-01",
			CustomerName: "Ana Pérez",
			Status:       status,
			Items:        items,
		},
	}
}

func line(productID string, qty int) dto.SaleItemRequest {
	return dto.SaleItemRequest{ProductID: productID, Quantity: qty}
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo principal
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateSale_TotalConImpuesto(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 100, 10)
	f.seed(t, "b", 50, 10)

	resp, err := f.useCase.CreateSale(context.Background(), principal,
		saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 2), line("b", 1)))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(295)), "total: %s", resp.Total)
	assert.Equal(t, 8, f.stock(t, "a"))
	assert.Equal(t, 9, f.stock(t, "b"))

	invoices, ledger, audit := f.counts(t)
	assert.Equal(t, 1, invoices)
	assert.Equal(t, 1, ledger)
	assert.Equal(t, 1, audit)

	inv, err := f.store.Invoices().GetByID(context.Background(), testCompanyID, resp.InvoiceID)
	require.NoError(t, err)
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(250)))
	assert.True(t, inv.TaxAmount.Equal(decimal.NewFromInt(45)))
	assert.Equal(t, testUserID, inv.CreatedBy)
}

func TestCreateSale_PrecioDelClienteSeIgnora(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 100, 10)
	forged := decimal.NewFromInt(1)

	req := saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, dto.SaleItemRequest{ProductID: "a", Quantity: 2, Price: &forged})
	zero := decimal.Zero
	req.InvoiceData.TaxRate = &zero
	resp, err := f.useCase.CreateSale(context.Background(), principal, req)
	require.NoError(t, err)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(200)), "el total debe salir del catálogo, no del cliente")

	inv, err := f.store.Invoices().GetByID(context.Background(), testCompanyID, resp.InvoiceID)
	require.NoError(t, err)
	assert.True(t, inv.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, inv.Items[0].LineTotal.Equal(decimal.NewFromInt(200)))
}

func TestCreateSale_ProductoInexistenteSinEfectos(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 100, 10)

	_, err := f.useCase.CreateSale(context.Background(), principal,
		saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 2), line("no-existe", 1)))

	var notFound *domain.ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "no-existe", notFound.ProductID)
	assert.Equal(t, 10, f.stock(t, "a"), "el stock de A no debe cambiar")
	invoices, ledger, audit := f.counts(t)
	assert.Zero(t, invoices)
	assert.Zero(t, ledger)
	assert.Zero(t, audit)
}

func TestCreateSale_StockInsuficiente(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 100, 1)

	_, err := f.useCase.CreateSale(context.Background(), principal,
		saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 2)))

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, f.stock(t, "a"))
}

func TestCreateSale_CantidadesEnormesSeRechazan(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 100, 10)

	_, err := f.useCase.CreateSale(context.Background(), principal,
		saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 10), line("a", math.MaxInt), line("a", math.MaxInt)))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 10, f.stock(t, "a"))

	invoices, ledger, _ := f.counts(t)
	assert.Zero(t, invoices)
	assert.Zero(t, ledger)
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateSale_ReintentoEsIdempotente(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 100, 2)
	req := saleRequest(uuid.NewString(), entity.InvoiceStatusPending, line("a", 2))

	first, err := f.useCase.CreateSale(context.Background(), principal, req)
	require.NoError(t, err)
	second, err := f.useCase.CreateSale(context.Background(), principal, req)
	require.NoError(t, err, "el reintento no debe fallar aunque el stock ya esté en cero")

	assert.Equal(t, first, second)
	assert.Equal(t, 0, f.stock(t, "a"), "un solo descuento de stock")
	invoices, ledger, audit := f.counts(t)
	assert.Equal(t, 1, invoices)
	assert.Equal(t, 1, ledger)
	assert.Equal(t, 1, audit)

	party, err := f.store.Parties().GetByName(context.Background(), testCompanyID, "Ana Pérez", entity.PartyTypeCustomer)
	require.NoError(t, err)
	assert.True(t, party.Balance.Equal(first.Total), "el saldo se ajusta una sola vez")
}

func TestCreateSale_ReintentosConcurrentesMismoID(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 100, 5)
	req := saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 5))

	results := make([]*dto.CreateSaleResponse, 6)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			resp, err := f.useCase.CreateSale(context.Background(), principal, req)
			results[i] = resp
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, 0, f.stock(t, "a"))
	invoices, ledger, audit := f.counts(t)
	assert.Equal(t, 1, invoices)
	assert.Equal(t, 1, ledger)
	assert.Equal(t, 1, audit)
}

func TestCreateSale_IDNormalizado(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 10, 5)
	id := uuid.New()

	first, err := f.useCase.CreateSale(context.Background(), principal, saleRequest(id.String(), entity.InvoiceStatusPaid, line("a", 1)))
	require.NoError(t, err)
	upper := saleRequest("  "+uuidUpper(id)+" ", entity.InvoiceStatusPaid, line("a", 1))
	second, err := f.useCase.CreateSale(context.Background(), principal, upper)
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceID, second.InvoiceID)
	assert.Equal(t, 4, f.stock(t, "a"))
}

func uuidUpper(id uuid.UUID) string {
	b := []byte(id.String())
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia sobre el mismo producto
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateSale_SinSobreventaConcurrente(t *testing.T) {
	const (
		stock    = 10
		qty      = 3
		attempts = 8
	)
	f := newFixture(t, nil)
	f.seed(t, "a", 100, stock)

	var (
		mu        sync.Mutex
		succeeded int
	)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := f.useCase.CreateSale(context.Background(), principal,
				saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", qty)))
			switch {
			case err == nil:
				mu.Lock()
				succeeded++
				mu.Unlock()
			case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrStockConflict):
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.LessOrEqual(t, succeeded*qty, stock)
	assert.GreaterOrEqual(t, succeeded, stock/qty)
	assert.Equal(t, stock-succeeded*qty, f.stock(t, "a"))
	assert.GreaterOrEqual(t, f.stock(t, "a"), 0)
}

// staleCatalog devuelve una vez un snapshot viejo y después delega en el catálogo real.
type staleCatalog struct {
	stale map[string]*entity.Product
	real  sales.CatalogReader
	calls atomic.Int32
}

func (c *staleCatalog) GetByIDs(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error) {
	if c.calls.Add(1) == 1 {
		return c.stale, nil
	}
	return c.real.GetByIDs(ctx, companyID, ids)
}

func TestCreateSale_PrecioCambiadoRecotiza(t *testing.T) {
	store := memory.NewStore()
	catalog := &staleCatalog{
		stale: map[string]*entity.Product{"a": {ID: "a", CompanyID: testCompanyID, Name: "A", Price: decimal.NewFromInt(100), Stock: 10}},
		real:  store.Products(),
	}
	f := newFixtureWithCatalog(t, store, &countingLimiter{}, catalog)
	f.seed(t, "a", 120, 10)

	resp, err := f.useCase.CreateSale(context.Background(), principal, saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1)))
	require.NoError(t, err)
	assert.EqualValues(t, 2, catalog.calls.Load(), "el conflicto obliga a volver a cotizar")
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("141.6")), "total: %s", resp.Total)
}

func TestCreateSale_ConflictoPersistenteSeReporta(t *testing.T) {
	store := memory.NewStore()
	stale := map[string]*entity.Product{"a": {ID: "a", CompanyID: testCompanyID, Price: decimal.NewFromInt(100), Stock: 10}}
	catalog := catalogFunc(func(context.Context, string, []string) (map[string]*entity.Product, error) { return stale, nil })
	f := newFixtureWithCatalog(t, store, &countingLimiter{}, catalog)
	f.seed(t, "a", 120, 10)

	_, err := f.useCase.CreateSale(context.Background(), principal, saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1)))
	require.ErrorIs(t, err, domain.ErrStockConflict)
	assert.NotErrorIs(t, err, domain.ErrInsufficientStock, "el conflicto se distingue del stock insuficiente")
	assert.Equal(t, 10, f.stock(t, "a"))
}

type catalogFunc func(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error)

func (fn catalogFunc) GetByIDs(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error) {
	return fn(ctx, companyID, ids)
}

// ──────────────────────────────────────────────────────────────────────────────
// Autenticación, alcance, validación y límite
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateSale_SinSesion(t *testing.T) {
	limiter := &countingLimiter{}
	f := newFixture(t, limiter)
	_, err := f.useCase.CreateSale(context.Background(), entity.Principal{}, saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1)))
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Zero(t, limiter.calls.Load(), "no debe consultar el limitador")
}

func TestCreateSale_OtraEmpresa(t *testing.T) {
	f := newFixture(t, &countingLimiter{})
	req := saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1))
	req.BusinessID = "empresa-2"
	_, err := f.useCase.CreateSale(context.Background(), principal, req)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateSale_ErroresDeEntradaAntesDelLimitador(t *testing.T) {
	cases := map[string]dto.CreateSaleRequest{
		"cantidad cero":    saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 0)),
		"sin líneas":       saleRequest(uuid.NewString(), entity.InvoiceStatusPaid),
		"id no UUID":       saleRequest("factura-1", entity.InvoiceStatusPaid, line("a", 1)),
		"estado inválido":  saleRequest(uuid.NewString(), "Draft", line("a", 1)),
		"línea sin nombre": saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, dto.SaleItemRequest{Quantity: 1}),
	}
	bad := saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1))
	bad.InvoiceData.Date = "01/03/2024"
	cases["fecha inválida"] = bad
	rate := decimal.NewFromInt(150)
	badTax := saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1))
	badTax.InvoiceData.TaxRate = &rate
	cases["impuesto fuera de rango"] = badTax

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			limiter := &countingLimiter{}
			f := newFixture(t, limiter)
			_, err := f.useCase.CreateSale(context.Background(), principal, req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Zero(t, limiter.calls.Load())
		})
	}
}

func TestCreateSale_OnceVentasEnUnMinuto(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewLimiter(store, ratelimit.Config{}).WithClock(func() time.Time { return now })
	f := newFixtureWithCatalog(t, store, limiter, store.Products())
	f.seed(t, "a", 10, 100)

	for i := 0; i < 10; i++ {
		_, err := f.useCase.CreateSale(context.Background(), principal, saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1)))
		require.NoError(t, err, "venta %d", i+1)
		now = now.Add(time.Second)
	}
	_, err := f.useCase.CreateSale(context.Background(), principal, saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1)))
	require.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 90, f.stock(t, "a"), "la venta rechazada no descuenta stock")

	now = time.Date(2024, 3, 1, 10, 1, 0, 0, time.UTC)
	_, err = f.useCase.CreateSale(context.Background(), principal, saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1)))
	assert.NoError(t, err, "a los 60 s del primer intento se admite de nuevo")
}

func TestCreateSale_FallaCerradoSinAlmacenDelLimitador(t *testing.T) {
	store := memory.NewStore()
	limiter := ratelimit.NewLimiter(brokenRateStore{}, ratelimit.Config{})
	f := newFixtureWithCatalog(t, store, limiter, store.Products())
	f.seed(t, "a", 10, 5)

	_, err := f.useCase.CreateSale(context.Background(), principal, saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1)))
	require.ErrorIs(t, err, domain.ErrRateLimitUnavailable)
	assert.Equal(t, 5, f.stock(t, "a"))
	invoices, _, _ := f.counts(t)
	assert.Zero(t, invoices)
}

func TestCreateSale_LineaLibre(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "a", 100, 5)
	req := saleRequest(uuid.NewString(), entity.InvoiceStatusPaid, line("a", 1), dto.SaleItemRequest{ProductName: "Flete", Quantity: 1})
	resp, err := f.useCase.CreateSale(context.Background(), principal, req)
	require.NoError(t, err)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(118)))

	inv, err := f.store.Invoices().GetByID(context.Background(), testCompanyID, resp.InvoiceID)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Flete", inv.Items[1].Description)
	assert.True(t, inv.Items[1].LineTotal.IsZero())
}
