package billing

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// InvoiceSource lee la factura finalizada de la empresa. Devuelve domain.ErrNotFound si no existe.
type InvoiceSource interface {
	GetEntity(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, error)
}

// Issuer datos del emisor impresos en la cabecera del PDF.
type Issuer struct {
	Name      string
	CompanyID string
}

// InvoicePDFGenerator renderiza la representación gráfica de una factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, invoice *entity.Invoice, issuer Issuer) ([]byte, error)
}
