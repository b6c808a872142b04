package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// MaxPageLimit tope de registros por página.
const MaxPageLimit = 100

// DefaultPage aplica valores por defecto y acota Limit/Offset.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP. Details lleva datos estructurados del error
// (producto faltante, stock disponible) para que el cliente distinga el caso sin parsear Message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ProductNotFoundDetails detalle de PRODUCT_NOT_FOUND.
type ProductNotFoundDetails struct {
	ProductID string `json:"productId"`
}

// InsufficientStockDetails detalle de INSUFFICIENT_STOCK.
type InsufficientStockDetails struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// RateLimitedDetails detalle de RATE_LIMITED.
type RateLimitedDetails struct {
	RetryAfterSeconds int `json:"retryAfterSeconds"`
}
