package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/application/catalog"
	"github.com/jhoicas/facturacion-api/internal/application/sales"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CreateSale *sales.CreateSaleUseCase
	Invoices   *sales.InvoiceUseCase
	InvoicePDF *billing.PDFUseCase
	Products   *catalog.ProductUseCase
	Purchases  *catalog.PurchaseUseCase
	JWTSecret  string
	JWTIssuer  string
}

// Router registra las rutas de la API. Todo /api exige Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	adminOnly := RequireRole(entity.RoleAdmin)
	sellers := RequireRole(entity.RoleAdmin, entity.RoleVendedor)
	stockKeepers := RequireRole(entity.RoleAdmin, entity.RoleBodeguero)

	// Ventas (núcleo)
	saleHandler := NewSaleHandler(deps.CreateSale)
	api.Post("/sales", sellers, saleHandler.Create)

	// Facturas
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.InvoicePDF)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)
	invoices.Patch("/:id/status", sellers, invoiceHandler.UpdateStatus)
	invoices.Delete("/:id", adminOnly, invoiceHandler.Delete)

	// Catálogo
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.Products)
	products.Post("/", stockKeepers, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", stockKeepers, productHandler.Update)

	purchaseHandler := NewPurchaseHandler(deps.Purchases)
	api.Post("/purchases", stockKeepers, purchaseHandler.Create)

	// Proyecciones
	ledgerHandler := NewLedgerHandler(deps.Invoices)
	api.Get("/transactions", ledgerHandler.Transactions)
	api.Get("/audit-logs", ledgerHandler.AuditLogs)
}
