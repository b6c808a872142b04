package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para facturas y sus líneas.
type InvoiceRepository interface {
	// Create persiste cabecera y líneas. Devuelve ErrDuplicate si el ID ya existe en la empresa.
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error)
	// GetForUpdate obtiene la factura con sus líneas y bloquea la cabecera.
	GetForUpdate(ctx context.Context, companyID, id string) (*entity.Invoice, error)
	UpdateStatus(ctx context.Context, companyID, id, status string, at time.Time) error
	Delete(ctx context.Context, companyID, id string) error
	// ListByCompany lista cabeceras (sin líneas), más recientes primero.
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Invoice, error)
}
