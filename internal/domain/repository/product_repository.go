package repository

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia del catálogo (DIP).
// Los métodos que no encuentran el registro devuelven (nil, nil).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Product, error)
	// GetByIDs lee varios productos en una sola consulta (snapshot consistente).
	// Los IDs inexistentes simplemente no aparecen en el mapa.
	GetByIDs(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error)
	// GetForUpdate igual que GetByIDs pero bloquea las filas hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error)
	// Update modifica nombre, SKU, precio, costo y unidad. El stock solo cambia vía AdjustStock.
	Update(ctx context.Context, product *entity.Product) error
	// AdjustStock suma delta (negativo para descontar). Devuelve ErrInsufficientStock si el
	// resultado quedaría negativo y ErrNotFound si el producto no existe.
	AdjustStock(ctx context.Context, companyID, id string, delta int) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Product, error)
}
