package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.ProductRepository = (*productRepo)(nil)
	_ repository.InvoiceRepository = (*invoiceRepo)(nil)
	_ repository.LedgerRepository  = (*ledgerRepo)(nil)
	_ repository.AuditRepository   = (*auditRepo)(nil)
	_ repository.PartyRepository   = (*partyRepo)(nil)
	_ repository.RateLimitStore    = (*Store)(nil)
)

// ── Productos ────────────────────────────────────────────────────────────────

type productRepo struct{ access }

func (r *productRepo) Create(_ context.Context, product *entity.Product) error {
	return r.run(func(st *state) error {
		byID := st.products[product.CompanyID]
		if byID == nil {
			byID = make(map[string]entity.Product)
			st.products[product.CompanyID] = byID
		}
		if _, ok := byID[product.ID]; ok {
			return domain.ErrDuplicate
		}
		if product.SKU != "" {
			for _, p := range byID {
				if p.SKU == product.SKU {
					return domain.ErrDuplicate
				}
			}
		}
		byID[product.ID] = *product
		return nil
	})
}

func (r *productRepo) GetByID(_ context.Context, companyID, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.view(func(st *state) error {
		if p, ok := st.products[companyID][id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *productRepo) GetByIDs(_ context.Context, companyID string, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	err := r.view(func(st *state) error {
		for _, id := range ids {
			if p, ok := st.products[companyID][id]; ok {
				out[id] = &p
			}
		}
		return nil
	})
	return out, err
}

// GetForUpdate: el mutex de la transacción ya serializa el acceso.
func (r *productRepo) GetForUpdate(ctx context.Context, companyID string, ids []string) (map[string]*entity.Product, error) {
	return r.GetByIDs(ctx, companyID, ids)
}

func (r *productRepo) Update(_ context.Context, product *entity.Product) error {
	return r.run(func(st *state) error {
		current, ok := st.products[product.CompanyID][product.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if product.SKU != "" && product.SKU != current.SKU {
			for id, p := range st.products[product.CompanyID] {
				if id != product.ID && p.SKU == product.SKU {
					return domain.ErrDuplicate
				}
			}
		}
		current.Name = product.Name
		current.SKU = product.SKU
		current.Price = product.Price
		current.Cost = product.Cost
		current.Unit = product.Unit
		current.UpdatedAt = product.UpdatedAt
		st.products[product.CompanyID][product.ID] = current
		return nil
	})
}

func (r *productRepo) AdjustStock(_ context.Context, companyID, id string, delta int) error {
	return r.run(func(st *state) error {
		p, ok := st.products[companyID][id]
		if !ok {
			return domain.ErrNotFound
		}
		if p.Stock+delta < 0 {
			return &domain.InsufficientStockError{ProductID: id, Available: p.Stock, Requested: -delta}
		}
		p.Stock += delta
		p.UpdatedAt = time.Now()
		st.products[companyID][id] = p
		return nil
	})
}

func (r *productRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Product, error) {
	var list []*entity.Product
	err := r.view(func(st *state) error {
		for _, id := range sortedKeys(st.products[companyID]) {
			p := st.products[companyID][id]
			list = append(list, &p)
		}
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return page(list, limit, offset), err
}

// ── Facturas ─────────────────────────────────────────────────────────────────

type invoiceRepo struct{ access }

func (r *invoiceRepo) Create(_ context.Context, invoice *entity.Invoice) error {
	return r.run(func(st *state) error {
		byID := st.invoices[invoice.CompanyID]
		if byID == nil {
			byID = make(map[string]entity.Invoice)
			st.invoices[invoice.CompanyID] = byID
		}
		if _, ok := byID[invoice.ID]; ok {
			return domain.ErrDuplicate
		}
		byID[invoice.ID] = cloneInvoice(*invoice)
		return nil
	})
}

func (r *invoiceRepo) GetByID(_ context.Context, companyID, id string) (*entity.Invoice, error) {
	var out *entity.Invoice
	err := r.view(func(st *state) error {
		if inv, ok := st.invoices[companyID][id]; ok {
			c := cloneInvoice(inv)
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *invoiceRepo) GetForUpdate(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, companyID, id)
}

func (r *invoiceRepo) UpdateStatus(_ context.Context, companyID, id, status string, at time.Time) error {
	return r.run(func(st *state) error {
		inv, ok := st.invoices[companyID][id]
		if !ok {
			return domain.ErrNotFound
		}
		inv.Status = status
		inv.UpdatedAt = at
		st.invoices[companyID][id] = inv
		return nil
	})
}

func (r *invoiceRepo) Delete(_ context.Context, companyID, id string) error {
	return r.run(func(st *state) error {
		if _, ok := st.invoices[companyID][id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.invoices[companyID], id)
		return nil
	})
}

func (r *invoiceRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Invoice, error) {
	var list []*entity.Invoice
	err := r.view(func(st *state) error {
		for _, id := range sortedKeys(st.invoices[companyID]) {
			inv := st.invoices[companyID][id]
			inv.Items = nil
			list = append(list, &inv)
		}
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return page(list, limit, offset), err
}

// ── Libro de transacciones ───────────────────────────────────────────────────

type ledgerRepo struct{ access }

func (r *ledgerRepo) Create(_ context.Context, entry *entity.LedgerEntry) error {
	return r.run(func(st *state) error {
		for _, e := range st.ledger {
			if e.ID == entry.ID || (e.CompanyID == entry.CompanyID && e.Type == entry.Type && e.SourceID == entry.SourceID) {
				return domain.ErrDuplicate
			}
		}
		st.ledger = append(st.ledger, *entry)
		return nil
	})
}

func (r *ledgerRepo) UpdateStatusBySource(_ context.Context, companyID, sourceID, status string, at time.Time) error {
	return r.run(func(st *state) error {
		for i := range st.ledger {
			if st.ledger[i].CompanyID == companyID && st.ledger[i].SourceID == sourceID {
				st.ledger[i].Status = status
				st.ledger[i].UpdatedAt = at
			}
		}
		return nil
	})
}

func (r *ledgerRepo) DeleteBySource(_ context.Context, companyID, sourceID string) error {
	return r.run(func(st *state) error {
		kept := st.ledger[:0]
		for _, e := range st.ledger {
			if e.CompanyID == companyID && e.SourceID == sourceID {
				continue
			}
			kept = append(kept, e)
		}
		st.ledger = kept
		return nil
	})
}

func (r *ledgerRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	var list []*entity.LedgerEntry
	err := r.view(func(st *state) error {
		for i := len(st.ledger) - 1; i >= 0; i-- {
			if st.ledger[i].CompanyID == companyID {
				e := st.ledger[i]
				list = append(list, &e)
			}
		}
		return nil
	})
	return page(list, limit, offset), err
}

// ── Bitácora ─────────────────────────────────────────────────────────────────

type auditRepo struct{ access }

func (r *auditRepo) Append(_ context.Context, entry *entity.AuditLog) error {
	return r.run(func(st *state) error {
		st.audit = append(st.audit, *entry)
		return nil
	})
}

func (r *auditRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.AuditLog, error) {
	var list []*entity.AuditLog
	err := r.view(func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			if st.audit[i].CompanyID == companyID {
				a := st.audit[i]
				list = append(list, &a)
			}
		}
		return nil
	})
	return page(list, limit, offset), err
}

// ── Contrapartes ─────────────────────────────────────────────────────────────

type partyRepo struct{ access }

func (r *partyRepo) AdjustBalance(_ context.Context, companyID, name, partyType string, delta decimal.Decimal) error {
	return r.run(func(st *state) error {
		key := partyKey(companyID, partyType, name)
		now := time.Now()
		p, ok := st.parties[key]
		if !ok {
			p = entity.Party{ID: key, CompanyID: companyID, Name: name, Type: partyType, Balance: decimal.Zero, CreatedAt: now}
		}
		p.Balance = p.Balance.Add(delta)
		p.UpdatedAt = now
		st.parties[key] = p
		return nil
	})
}

func (r *partyRepo) GetByName(_ context.Context, companyID, name, partyType string) (*entity.Party, error) {
	var out *entity.Party
	err := r.view(func(st *state) error {
		if p, ok := st.parties[partyKey(companyID, partyType, name)]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}
