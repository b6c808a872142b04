package ratelimit_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/facturacion-api/internal/application/ratelimit"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/memory"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, time.Time, entity.RateLimitRule) (entity.RateLimitWindow, bool, error) {
	return entity.RateLimitWindow{}, false, errors.New("conexión rechazada")
}

func newLimiter(store repository.RateLimitStore) (*ratelimit.Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	return ratelimit.NewLimiter(store, ratelimit.Config{}).WithClock(clock.Now), clock
}

func TestAdmit_OnceSolicitudesEnUnMinuto(t *testing.T) {
	limiter, clock := newLimiter(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Admit(ctx, "u1"), "solicitud %d", i+1)
		clock.Advance(2 * time.Second)
	}
	err := limiter.Admit(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrRateLimited, "la solicitud 11 debe rechazarse")

	var rejected *ratelimit.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 40*time.Second, rejected.RetryAfter)

	// 60 s después del primer intento se abre una ventana nueva.
	clock.Advance(40 * time.Second)
	assert.NoError(t, limiter.Admit(ctx, "u1"), "la solicitud 12 debe admitirse")
}

func TestAdmit_RechazoNoConsumeCuota(t *testing.T) {
	limiter, clock := newLimiter(memory.NewStore())
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Admit(ctx, "u1"))
	}
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, limiter.Admit(ctx, "u1"), domain.ErrRateLimited)
	}
	clock.Advance(60 * time.Second)
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Admit(ctx, "u1"))
	}
}

func TestAdmit_VentanaFijaPermiteRafagaEnElBorde(t *testing.T) {
	limiter, clock := newLimiter(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, limiter.Admit(ctx, "u1"))
	clock.Advance(59 * time.Second)
	for i := 0; i < 9; i++ {
		require.NoError(t, limiter.Admit(ctx, "u1"))
	}
	clock.Advance(time.Second)
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Admit(ctx, "u1"), "ventana nueva, solicitud %d", i+1)
	}
}

func TestAdmit_UsuariosIndependientes(t *testing.T) {
	limiter, _ := newLimiter(memory.NewStore())
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Admit(ctx, "u1"))
	}
	assert.ErrorIs(t, limiter.Admit(ctx, "u1"), domain.ErrRateLimited)
	assert.NoError(t, limiter.Admit(ctx, "u2"))
}

func TestAdmit_FallaCerrado(t *testing.T) {
	limiter, _ := newLimiter(brokenStore{})
	err := limiter.Admit(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimitUnavailable)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}

func TestAdmit_SinUsuario(t *testing.T) {
	limiter, _ := newLimiter(memory.NewStore())
	assert.ErrorIs(t, limiter.Admit(context.Background(), ""), domain.ErrUnauthenticated)
}

func TestAdmit_ConcurrenteExactamenteLaCuota(t *testing.T) {
	limiter, _ := newLimiter(memory.NewStore())
	ctx := context.Background()

	var admitted, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			err := limiter.Admit(ctx, "u1")
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, domain.ErrRateLimited):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 10, admitted.Load())
	assert.EqualValues(t, 40, rejected.Load())
}
