package entity

import "github.com/shopspring/decimal"

// InvoiceItem representa una línea finalizada de la factura.
// ProductID vacío indica una línea libre (sin inventario).
type InvoiceItem struct {
	Position    int
	ProductID   string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal // copiado del catálogo al momento del commit
	LineTotal   decimal.Decimal // Quantity * UnitPrice
}

// IsInventory indica si la línea descuenta stock del catálogo.
func (it InvoiceItem) IsInventory() bool {
	return it.ProductID != ""
}
