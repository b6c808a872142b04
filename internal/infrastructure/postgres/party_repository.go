package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.PartyRepository = (*PartyRepo)(nil)

// PartyRepo tabla parties. El nombre se compara sin mayúsculas ni espacios extremos (name_key).
type PartyRepo struct {
	q Querier
}

// NewPartyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPartyRepository(q Querier) *PartyRepo {
	return &PartyRepo{q: q}
}

// AdjustBalance hace upsert atómico: crea la contraparte con saldo delta o le suma delta.
func (r *PartyRepo) AdjustBalance(ctx context.Context, companyID, name, partyType string, delta decimal.Decimal) error {
	query := `
		INSERT INTO parties (id, company_id, name, name_key, type, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (company_id, type, name_key)
		DO UPDATE SET balance = parties.balance + EXCLUDED.balance, updated_at = now()`
	_, err := r.q.Exec(ctx, query, uuid.New().String(), companyID, name, normalizeName(name), partyType, delta)
	if err != nil {
		return fmt.Errorf("adjust party balance: %w", err)
	}
	return nil
}

func (r *PartyRepo) GetByName(ctx context.Context, companyID, name, partyType string) (*entity.Party, error) {
	var p entity.Party
	err := r.q.QueryRow(ctx, `
		SELECT id, company_id, name, type, balance, created_at, updated_at
		FROM parties WHERE company_id = $1 AND type = $2 AND name_key = $3`,
		companyID, partyType, normalizeName(name),
	).Scan(&p.ID, &p.CompanyID, &p.Name, &p.Type, &p.Balance, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get party: %w", err)
	}
	return &p, nil
}
