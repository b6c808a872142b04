package catalog

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con los repos del catálogo.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		ledgerRepo repository.LedgerRepository,
		auditRepo repository.AuditRepository,
	) error) error
}
