// Package memory implementa todos los puertos de persistencia en memoria.
// Se usa en tests y con STORAGE_BACKEND=memory en desarrollo.
//
// Las transacciones se serializan con un mutex global y trabajan sobre una copia del estado:
// si fn devuelve error la copia se descarta (rollback), si no, reemplaza al estado vigente.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

type state struct {
	products map[string]map[string]entity.Product // companyID -> productID -> producto
	invoices map[string]map[string]entity.Invoice // companyID -> invoiceID -> factura
	ledger   []entity.LedgerEntry
	audit    []entity.AuditLog
	parties  map[string]entity.Party // partyKey
}

func newState() *state {
	return &state{
		products: make(map[string]map[string]entity.Product),
		invoices: make(map[string]map[string]entity.Invoice),
		parties:  make(map[string]entity.Party),
	}
}

func (st *state) clone() *state {
	out := newState()
	for company, byID := range st.products {
		m := make(map[string]entity.Product, len(byID))
		for id, p := range byID {
			m[id] = p
		}
		out.products[company] = m
	}
	for company, byID := range st.invoices {
		m := make(map[string]entity.Invoice, len(byID))
		for id, inv := range byID {
			m[id] = cloneInvoice(inv)
		}
		out.invoices[company] = m
	}
	out.ledger = append([]entity.LedgerEntry(nil), st.ledger...)
	out.audit = append([]entity.AuditLog(nil), st.audit...)
	for k, p := range st.parties {
		out.parties[k] = p
	}
	return out
}

func cloneInvoice(inv entity.Invoice) entity.Invoice {
	inv.Items = append([]entity.InvoiceItem(nil), inv.Items...)
	return inv
}

func partyKey(companyID, partyType, name string) string {
	return companyID + "|" + partyType + "|" + strings.ToLower(strings.TrimSpace(name))
}

// runner ejecuta fn sobre un estado: dentro de una tx es el estado de la tx,
// fuera de ella cada llamada es su propia transacción.
type runner func(fn func(st *state) error) error

// access agrupa el runner de escritura y el de lectura de un repositorio.
// Las lecturas fuera de tx no copian el estado; fn no debe modificarlo.
type access struct {
	run  runner
	view runner
}

// Store almacén en memoria.
type Store struct {
	mu   sync.RWMutex
	data *state

	rlMu    sync.Mutex
	windows map[string]entity.RateLimitWindow
}

// NewStore construye un almacén vacío.
func NewStore() *Store {
	return &Store{data: newState(), windows: make(map[string]entity.RateLimitWindow)}
}

func (s *Store) atomically(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) direct() access { return access{run: s.atomically, view: s.read} }

// Products devuelve el repositorio de productos fuera de transacción.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s.direct()} }

// Invoices devuelve el repositorio de facturas fuera de transacción.
func (s *Store) Invoices() repository.InvoiceRepository { return &invoiceRepo{s.direct()} }

// Ledger devuelve el repositorio del libro de transacciones fuera de transacción.
func (s *Store) Ledger() repository.LedgerRepository { return &ledgerRepo{s.direct()} }

// Audit devuelve la bitácora fuera de transacción.
func (s *Store) Audit() repository.AuditRepository { return &auditRepo{s.direct()} }

// Parties devuelve el repositorio de contrapartes fuera de transacción.
func (s *Store) Parties() repository.PartyRepository { return &partyRepo{s.direct()} }

// RunSale ejecuta fn con repositorios atados a una única transacción.
func (s *Store) RunSale(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	invoiceRepo repository.InvoiceRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	partyRepo repository.PartyRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.atomically(func(st *state) error {
		tx := inTx(st)
		return fn(&productRepo{tx}, &invoiceRepo{tx}, &ledgerRepo{tx}, &auditRepo{tx}, &partyRepo{tx})
	})
}

// Run ejecuta fn con los repositorios de catálogo atados a una única transacción.
func (s *Store) Run(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.atomically(func(st *state) error {
		tx := inTx(st)
		return fn(&productRepo{tx}, &ledgerRepo{tx}, &auditRepo{tx})
	})
}

func inTx(st *state) access {
	run := func(fn func(st *state) error) error { return fn(st) }
	return access{run: run, view: run}
}

// Hit implementa repository.RateLimitStore con un mutex propio (sin contención con ventas).
func (s *Store) Hit(ctx context.Context, userID string, now time.Time, rule entity.RateLimitRule) (entity.RateLimitWindow, bool, error) {
	if err := ctx.Err(); err != nil {
		return entity.RateLimitWindow{}, false, err
	}
	s.rlMu.Lock()
	defer s.rlMu.Unlock()
	var current *entity.RateLimitWindow
	if w, ok := s.windows[userID]; ok {
		current = &w
	}
	next, admitted := rule.Next(current, userID, now)
	s.windows[userID] = next
	return next, admitted, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
