package repository

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PartyRepository mantiene clientes/proveedores y su saldo corriente.
type PartyRepository interface {
	// AdjustBalance suma delta al saldo de la contraparte, creándola si no existe.
	AdjustBalance(ctx context.Context, companyID, name, partyType string, delta decimal.Decimal) error
	GetByName(ctx context.Context, companyID, name, partyType string) (*entity.Party, error)
}
