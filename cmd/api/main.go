package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/application/catalog"
	"github.com/jhoicas/facturacion-api/internal/application/ratelimit"
	"github.com/jhoicas/facturacion-api/internal/application/sales"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/facturacion-api/internal/infrastructure/pdf"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/facturacion-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/facturacion-api/pkg/config"
	"github.com/jhoicas/facturacion-api/pkg/logger"
)

// storage agrupa los puertos que necesitan los casos de uso, sea cual sea el backend.
type storage struct {
	saleTx    sales.SaleTxRunner
	catalogTx catalog.TxRunner
	products  repository.ProductRepository
	invoices  repository.InvoiceRepository
	ledger    repository.LedgerRepository
	audit     repository.AuditRepository
	rateStore repository.RateLimitStore
	closers   []func()
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Sales.StorageBackend).
		Str("rate_limit", cfg.Sales.RateLimitBackend).
		Msg("iniciando aplicación")

	// Los montos salen como número JSON (total: 295.00), no como string.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer st.close()

	limiter := ratelimit.NewLimiter(st.rateStore, ratelimit.Config{
		Quota:  cfg.Sales.RateLimitQuota,
		Window: cfg.Sales.RateLimitWindow,
	})
	createSaleUC := sales.NewCreateSaleUseCase(
		limiter, st.products, st.invoices, sales.NewCoordinator(st.saleTx),
		sales.Config{
			DefaultTaxRate:    decimal.NewFromInt(int64(cfg.Sales.DefaultTaxRate)),
			MaxCommitAttempts: cfg.Sales.CommitMaxAttempts,
		},
		log,
	)
	invoiceUC := sales.NewInvoiceUseCase(st.saleTx, st.invoices, st.ledger, st.audit, log)
	productUC := catalog.NewProductUseCase(st.catalogTx, st.products)
	purchaseUC := catalog.NewPurchaseUseCase(st.catalogTx)
	invoicePDFUC := billing.NewPDFUseCase(invoiceUC, infrapdf.NewMarotoPDFGenerator(), cfg.App.Name)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log),
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CreateSale: createSaleUC,
		Invoices:   invoiceUC,
		InvoicePDF: invoicePDFUC,
		Products:   productUC,
		Purchases:  purchaseUC,
		JWTSecret:  cfg.JWT.Secret,
		JWTIssuer:  cfg.JWT.Issuer,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			return fmt.Errorf("servidor HTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
		st.close()
		os.Exit(1)
	}
	log.Info().Msg("aplicación detenida")
}

// buildStorage conecta los backends configurados. memory sirve para desarrollo local sin dependencias.
func buildStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	st := &storage{}

	switch cfg.Sales.StorageBackend {
	case config.BackendMemory:
		mem := memory.NewStore()
		st.saleTx, st.catalogTx = mem, mem
		st.products, st.invoices, st.ledger, st.audit = mem.Products(), mem.Invoices(), mem.Ledger(), mem.Audit()
		st.rateStore = mem
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		st.closers = append(st.closers, pool.Close)
		tx := postgres.NewTxRunner(pool)
		st.saleTx, st.catalogTx = tx, tx
		st.products = postgres.NewProductRepository(pool)
		st.invoices = postgres.NewInvoiceRepository(pool)
		st.ledger = postgres.NewLedgerRepository(pool)
		st.audit = postgres.NewAuditRepository(pool)
		if cfg.Sales.RateLimitBackend == config.BackendPostgres {
			st.rateStore = postgres.NewRateLimitStore(pool)
		}
	}

	switch cfg.Sales.RateLimitBackend {
	case config.BackendRedis:
		client, err := infraredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		st.rateStore = infraredis.NewRateLimitStore(client)
	case config.BackendMemory:
		if st.rateStore == nil {
			st.rateStore = memory.NewStore()
		}
	}
	return st, nil
}
