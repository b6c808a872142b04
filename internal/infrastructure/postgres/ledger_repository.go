package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo tabla ledger_entries (proyección de facturas y compras).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

func (r *LedgerRepo) Create(ctx context.Context, e *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, company_id, source_id, date, type, reference, party_name, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.CompanyID, e.SourceID, e.Date, e.Type, e.Reference, e.PartyName,
		e.Amount, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepo) UpdateStatusBySource(ctx context.Context, companyID, sourceID, status string, at time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE ledger_entries SET status = $3, updated_at = $4 WHERE company_id = $1 AND source_id = $2`,
		companyID, sourceID, status, at,
	)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	return nil
}

func (r *LedgerRepo) DeleteBySource(ctx context.Context, companyID, sourceID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM ledger_entries WHERE company_id = $1 AND source_id = $2`, companyID, sourceID); err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT id, company_id, source_id, date, type, reference, party_name, amount, status, created_at, updated_at
		FROM ledger_entries WHERE company_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.SourceID, &e.Date, &e.Type, &e.Reference, &e.PartyName,
			&e.Amount, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
