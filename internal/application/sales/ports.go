package sales

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// SaleTxRunner ejecuta fn dentro de una unidad atómica con los repos que toca una venta.
// Si fn devuelve error no queda ningún efecto persistido.
type SaleTxRunner interface {
	RunSale(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
		ledgerRepo repository.LedgerRepository,
		auditRepo repository.AuditRepository,
		partyRepo repository.PartyRepository,
	) error) error
}

// CatalogReader lectura en lote del catálogo (un único snapshot).
type CatalogReader interface {
	GetByIDs(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error)
}

// InvoiceReader consulta de facturas ya confirmadas.
type InvoiceReader interface {
	GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error)
}

// RateLimiter admite o rechaza una solicitud del usuario.
type RateLimiter interface {
	Admit(ctx context.Context, userID string) error
}
