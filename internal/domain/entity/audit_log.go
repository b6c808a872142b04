package entity

import "time"

// Acciones registradas en la bitácora.
const (
	AuditActionCreateSale    = "CREATE_SALE"
	AuditActionStatusChange  = "INVOICE_STATUS_CHANGE"
	AuditActionDeleteInvoice = "DELETE_INVOICE"
	AuditActionPurchase      = "RECORD_PURCHASE"
	AuditActionCreateProduct = "CREATE_PRODUCT"
	AuditActionUpdateProduct = "UPDATE_PRODUCT"
)

// AuditLog es una entrada de solo-anexar; el núcleo nunca la actualiza ni la borra.
type AuditLog struct {
	ID        string
	CompanyID string
	Action    string
	Detail    string
	ActorID   string
	CreatedAt time.Time
}
