package entity

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity tope de unidades por línea y de stock acumulado; coincide con la columna INTEGER.
const MaxQuantity = math.MaxInt32

// Product representa un producto del catálogo autoritativo de una empresa.
// Price es el único precio confiable para ventas; Stock nunca queda negativo por una venta.
type Product struct {
	ID        string
	CompanyID string
	SKU       string // opcional, único por empresa si se informa
	Name      string
	Price     decimal.Decimal // precio unitario de venta
	Cost      decimal.Decimal // costo promedio ponderado, se recalcula en cada compra
	Stock     int
	Unit      string // etiqueta de unidad: "und", "kg", "caja"...
	CreatedAt time.Time
	UpdatedAt time.Time
}
