package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

// RateLimitStore guarda las ventanas fijas por usuario.
// Hit cuenta una solicitud con rule.Next como una única lectura-modificación-escritura
// atómica por usuario: dos llamadas concurrentes nunca observan el mismo estado previo.
type RateLimitStore interface {
	Hit(ctx context.Context, userID string, now time.Time, rule entity.RateLimitRule) (entity.RateLimitWindow, bool, error)
}
