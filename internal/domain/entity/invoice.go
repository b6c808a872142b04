package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pago de una factura.
const (
	InvoiceStatusPaid    = "Paid"
	InvoiceStatusPending = "Pending"
)

// IsValidInvoiceStatus indica si s es un estado de pago conocido.
func IsValidInvoiceStatus(s string) bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusPending
}

// Invoice representa una factura de venta ya cotizada contra el catálogo.
// ID lo genera el cliente y funciona como llave de idempotencia del commit.
// Number es solo de presentación; no se exige unicidad.
type Invoice struct {
	ID           string
	CompanyID    string
	Number       string
	Date         time.Time
	CustomerName string // texto libre, no es llave foránea
	Items        []InvoiceItem
	Subtotal     decimal.Decimal
	TaxRate      decimal.Decimal // porcentaje (18 = 18%)
	TaxAmount    decimal.Decimal
	Total        decimal.Decimal
	Status       string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StockDecrements agrega las cantidades por producto de las líneas de inventario.
func (inv *Invoice) StockDecrements() map[string]int {
	out := make(map[string]int)
	for _, it := range inv.Items {
		if it.IsInventory() {
			out[it.ProductID] += it.Quantity
		}
	}
	return out
}
