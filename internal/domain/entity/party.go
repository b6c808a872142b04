package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de contraparte.
const (
	PartyTypeCustomer = "customer"
	PartyTypeSupplier = "supplier"
)

// Party representa un cliente o proveedor identificado por su nombre dentro de la empresa.
// Balance es el saldo por cobrar (clientes) o por pagar (proveedores).
type Party struct {
	ID        string
	CompanyID string
	Name      string
	Type      string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
