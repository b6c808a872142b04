// Package ratelimit implementa el límite de ventas por usuario con ventana fija.
//
// La ventana fija permite ráfagas de hasta 2x la cuota alrededor del cambio de ventana;
// es el comportamiento esperado, no un defecto.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// Valores por defecto: 10 solicitudes admitidas por usuario cada 60 segundos.
const (
	DefaultQuota  = 10
	DefaultWindow = 60 * time.Second
)

// Config parámetros del limitador.
type Config struct {
	Quota  int
	Window time.Duration
}

// RejectedError se devuelve cuando el usuario agotó su cuota. Unwrap -> domain.ErrRateLimited.
type RejectedError struct {
	RetryAfter time.Duration
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("límite de solicitudes alcanzado, reintentar en %s", e.RetryAfter.Round(time.Second))
}

func (e *RejectedError) Unwrap() error { return domain.ErrRateLimited }

// Limiter admite o rechaza solicitudes consultando un RateLimitStore.
type Limiter struct {
	store repository.RateLimitStore
	cfg   Config
	now   func() time.Time
}

// NewLimiter construye el limitador. Valores <= 0 en cfg toman los valores por defecto.
func NewLimiter(store repository.RateLimitStore, cfg Config) *Limiter {
	if cfg.Quota <= 0 {
		cfg.Quota = DefaultQuota
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Limiter{store: store, cfg: cfg, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Admit devuelve nil si la solicitud entra en la cuota del usuario.
// Si el almacén falla, la solicitud se rechaza con domain.ErrRateLimitUnavailable (falla cerrado).
func (l *Limiter) Admit(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	now := l.now()
	window, admitted, err := l.store.Hit(ctx, userID, now, entity.RateLimitRule{Quota: l.cfg.Quota, Window: l.cfg.Window})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRateLimitUnavailable, err)
	}
	if !admitted {
		retry := window.ResetAt.Sub(now)
		if retry < 0 {
			retry = 0
		}
		return &RejectedError{RetryAfter: retry}
	}
	return nil
}
