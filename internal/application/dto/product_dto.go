package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto. Stock es el inventario inicial.
type CreateProductRequest struct {
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Cost  decimal.Decimal `json:"cost"` // costo unitario del stock inicial
	Stock int             `json:"stock"`
	Unit  string          `json:"unit"`
}

// UpdateProductRequest entrada para actualizar un producto (sin Stock: entra por compras y sale por ventas).
type UpdateProductRequest struct {
	SKU   *string          `json:"sku"`
	Name  *string          `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Unit  *string          `json:"unit"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     int             `json:"stock"`
	Unit      string          `json:"unit"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// PurchaseRequest body para POST /api/purchases (entrada de mercancía).
type PurchaseRequest struct {
	ID           string                `json:"id,omitempty"` // opcional; se genera si va vacío
	Reference    string                `json:"reference"`
	SupplierName string                `json:"supplier_name"`
	Date         string                `json:"date,omitempty"`
	Status       string                `json:"status"` // Paid | Pending
	Items        []PurchaseItemRequest `json:"items"`
}

// PurchaseItemRequest línea de compra: cantidad que entra y costo unitario pagado.
type PurchaseItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// PurchaseResponse resultado de registrar una compra.
type PurchaseResponse struct {
	ID    string          `json:"id"`
	Total decimal.Decimal `json:"total"`
}
