package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento en el libro de transacciones.
const (
	LedgerTypeSale     = "Sale"
	LedgerTypePurchase = "Purchase"
)

// LedgerEntry es la proyección de lectura de un documento confirmado (factura o compra).
// No es autoritativa: se escribe siempre en la misma unidad atómica que su documento origen.
type LedgerEntry struct {
	ID        string
	CompanyID string
	SourceID  string // ID de la factura o compra
	Date      time.Time
	Type      string
	Reference string // número visible del documento
	PartyName string
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
