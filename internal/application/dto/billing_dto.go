package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateSaleRequest body para POST /api/sales.
type CreateSaleRequest struct {
	BusinessID  string             `json:"businessId"`
	InvoiceData InvoiceDataRequest `json:"invoiceData"`
}

// InvoiceDataRequest borrador de la venta tal como lo arma el cliente.
// ID lo genera el cliente (UUID) y es la llave de idempotencia: reenviar el mismo ID no duplica la venta.
type InvoiceDataRequest struct {
	ID           string            `json:"id"`
	InvoiceNo    string            `json:"invoiceNo"`
	Date         string            `json:"date"` // 2006-01-02 o RFC3339; vacío = ahora
	CustomerName string            `json:"customerName"`
	Status       string            `json:"status"` // Paid | Pending
	TaxRate      *decimal.Decimal  `json:"taxRate,omitempty"`
	Items        []SaleItemRequest `json:"items"`
}

// SaleItemRequest línea del borrador. Con ProductID es una línea de inventario; sin él, una línea
// libre descrita por ProductName. Price se acepta en el JSON pero nunca se usa para cotizar.
type SaleItemRequest struct {
	ProductID   string           `json:"productId,omitempty"`
	Quantity    int              `json:"quantity"`
	ProductName string           `json:"productName,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

// CreateSaleResponse respuesta de éxito del núcleo de ventas.
type CreateSaleResponse struct {
	Success   bool            `json:"success"`
	InvoiceID string          `json:"invoiceId"`
	Total     decimal.Decimal `json:"total"`
}

// UpdateInvoiceStatusRequest body para PATCH /api/invoices/:id/status.
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

// InvoiceResponse factura con detalle para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID           string                `json:"id"`
	CompanyID    string                `json:"company_id"`
	Number       string                `json:"number"`
	Date         time.Time             `json:"date"`
	CustomerName string                `json:"customer_name"`
	Subtotal     decimal.Decimal       `json:"subtotal"`
	TaxRate      decimal.Decimal       `json:"tax_rate"`
	TaxAmount    decimal.Decimal       `json:"tax_amount"`
	Total        decimal.Decimal       `json:"total"`
	Status       string                `json:"status"`
	CreatedBy    string                `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Items        []InvoiceItemResponse `json:"items,omitempty"`
}

// InvoiceItemResponse línea finalizada.
type InvoiceItemResponse struct {
	Position    int             `json:"position"`
	ProductID   string          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// InvoiceListResponse lista paginada de cabeceras.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// LedgerEntryResponse fila del libro de transacciones.
type LedgerEntryResponse struct {
	ID        string          `json:"id"`
	SourceID  string          `json:"source_id"`
	Date      time.Time       `json:"date"`
	Type      string          `json:"type"`
	Reference string          `json:"reference"`
	PartyName string          `json:"party_name"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

// LedgerListResponse lista paginada del libro.
type LedgerListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// AuditLogResponse entrada de la bitácora.
type AuditLogResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	ActorID   string    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditListResponse lista paginada de la bitácora.
type AuditListResponse struct {
	Items []AuditLogResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
