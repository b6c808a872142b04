package sales

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// DefaultTaxRate porcentaje de impuesto cuando el borrador no trae taxRate.
var DefaultTaxRate = decimal.NewFromInt(18)

var hundred = decimal.NewFromInt(100)

// DraftItem línea no confiable enviada por el cliente. No lleva precio: el precio del
// cliente nunca llega a esta capa.
type DraftItem struct {
	ProductID   string // vacío = línea libre
	Quantity    int
	Description string // solo para líneas libres
}

// Catalog snapshot de productos leído en una sola consulta, por ID.
type Catalog map[string]*entity.Product

// StockDecrement descuento a aplicar en el commit. ExpectedPrice es el precio con el que se
// cotizó; si el producto bloqueado trae otro precio el commit se aborta.
type StockDecrement struct {
	ProductID     string
	Quantity      int
	ExpectedPrice decimal.Decimal
}

// PricedSale resultado de cotizar un borrador contra el catálogo.
type PricedSale struct {
	Items      []entity.InvoiceItem
	Subtotal   decimal.Decimal
	TaxRate    decimal.Decimal
	TaxAmount  decimal.Decimal
	Total      decimal.Decimal
	Decrements []StockDecrement // ordenados por ProductID
}

// ValidateDraft rechaza borradores mal formados antes de tocar cualquier almacenamiento.
func ValidateDraft(items []DraftItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: la venta no tiene líneas", domain.ErrInvalidInput)
	}
	for i, it := range items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: línea %d: la cantidad debe ser un entero positivo", domain.ErrInvalidInput, i+1)
		}
		if it.Quantity > entity.MaxQuantity {
			return fmt.Errorf("%w: línea %d: la cantidad supera el máximo de %d", domain.ErrInvalidInput, i+1, entity.MaxQuantity)
		}
		if strings.TrimSpace(it.ProductID) == "" && strings.TrimSpace(it.Description) == "" {
			return fmt.Errorf("%w: línea %d: falta el producto o la descripción", domain.ErrInvalidInput, i+1)
		}
	}
	return nil
}

// ValidateTaxRate acepta porcentajes entre 0 y 100.
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return fmt.Errorf("%w: taxRate debe estar entre 0 y 100", domain.ErrInvalidInput)
	}
	return nil
}

// ProductIDs devuelve los IDs distintos de las líneas de inventario, ordenados.
func ProductIDs(items []DraftItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			continue
		}
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// PriceAndValidate cotiza el borrador contra el snapshot. No muta nada.
//
// Cualquier producto inexistente o con stock insuficiente aborta la venta completa.
// Las líneas repetidas de un mismo producto se suman antes de comparar con el stock.
// Las líneas libres se facturan a precio cero.
func PriceAndValidate(catalog Catalog, items []DraftItem, taxRate decimal.Decimal) (*PricedSale, error) {
	requested := make(map[string]int)
	out := &PricedSale{Items: make([]entity.InvoiceItem, 0, len(items)), TaxRate: taxRate}
	subtotal := decimal.Zero

	for i, it := range items {
		line := entity.InvoiceItem{Position: i + 1, Quantity: it.Quantity}
		if it.ProductID == "" {
			line.Description = strings.TrimSpace(it.Description)
			line.UnitPrice = decimal.Zero
			line.LineTotal = decimal.Zero
			out.Items = append(out.Items, line)
			continue
		}

		p, ok := catalog[it.ProductID]
		if !ok || p == nil {
			return nil, &domain.ProductNotFoundError{ProductID: it.ProductID}
		}
		// requested nunca supera Stock, así que la resta no desborda.
		if it.Quantity > p.Stock-requested[it.ProductID] {
			return nil, &domain.InsufficientStockError{
				ProductID: it.ProductID,
				Available: p.Stock,
				Requested: requested[it.ProductID] + it.Quantity,
			}
		}
		requested[it.ProductID] += it.Quantity

		line.ProductID = p.ID
		line.Description = p.Name
		line.UnitPrice = p.Price
		line.LineTotal = p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line.LineTotal)
		out.Items = append(out.Items, line)
	}

	out.Subtotal = subtotal
	out.TaxAmount = subtotal.Mul(taxRate).Div(hundred).Round(2)
	out.Total = subtotal.Add(out.TaxAmount)

	out.Decrements = make([]StockDecrement, 0, len(requested))
	for id, qty := range requested {
		out.Decrements = append(out.Decrements, StockDecrement{ProductID: id, Quantity: qty, ExpectedPrice: catalog[id].Price})
	}
	sort.Slice(out.Decrements, func(i, j int) bool { return out.Decrements[i].ProductID < out.Decrements[j].ProductID })
	return out, nil
}
