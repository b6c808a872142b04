package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var _ repository.RateLimitStore = (*RateLimitStore)(nil)

// RateLimitStore ventanas del limitador en la tabla rate_limits.
// Cada Hit es una tx corta: asegura la fila, la bloquea con FOR UPDATE y la reescribe.
type RateLimitStore struct {
	pool *pgxpool.Pool
}

// NewRateLimitStore construye el almacén con el pool.
func NewRateLimitStore(pool *pgxpool.Pool) *RateLimitStore {
	return &RateLimitStore{pool: pool}
}

// Hit implementa repository.RateLimitStore.
func (s *RateLimitStore) Hit(ctx context.Context, userID string, now time.Time, rule entity.RateLimitRule) (entity.RateLimitWindow, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return entity.RateLimitWindow{}, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// reset_at = epoch marca "sin ventana": rule.Next lo trata igual que una ventana vencida.
	if _, err := tx.Exec(ctx,
		`INSERT INTO rate_limits (user_id, count, reset_at) VALUES ($1, 0, to_timestamp(0)) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return entity.RateLimitWindow{}, false, fmt.Errorf("ensure rate limit row: %w", err)
	}

	var (
		count   int
		resetAt time.Time
	)
	if err := tx.QueryRow(ctx,
		`SELECT count, reset_at FROM rate_limits WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&count, &resetAt); err != nil {
		return entity.RateLimitWindow{}, false, fmt.Errorf("lock rate limit row: %w", err)
	}

	var current *entity.RateLimitWindow
	if count > 0 {
		current = &entity.RateLimitWindow{UserID: userID, Count: count, ResetAt: resetAt}
	}
	next, admitted := rule.Next(current, userID, now)
	if admitted {
		if _, err := tx.Exec(ctx,
			`UPDATE rate_limits SET count = $2, reset_at = $3 WHERE user_id = $1`,
			userID, next.Count, next.ResetAt,
		); err != nil {
			return entity.RateLimitWindow{}, false, fmt.Errorf("update rate limit row: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return entity.RateLimitWindow{}, false, fmt.Errorf("commit transaction: %w", err)
	}
	return next, admitted, nil
}
