package repository

import (
	"context"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// AuditRepository bitácora de solo-anexar.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditLog) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.AuditLog, error)
}
