package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// LedgerRepository persiste la proyección de transacciones derivada de facturas y compras.
type LedgerRepository interface {
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	UpdateStatusBySource(ctx context.Context, companyID, sourceID, status string, at time.Time) error
	DeleteBySource(ctx context.Context, companyID, sourceID string) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.LedgerEntry, error)
}
