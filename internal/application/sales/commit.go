package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// CommitInput factura ya cotizada más los descuentos de stock que la respaldan.
type CommitInput struct {
	Invoice    *entity.Invoice
	Decrements []StockDecrement
	ActorID    string
}

// CommitResult resultado de un commit. Replayed indica que la factura ya existía
// (reintento del cliente) y no se aplicó ningún efecto nuevo.
type CommitResult struct {
	InvoiceID string
	Total     decimal.Decimal
	Replayed  bool
}

// Coordinator confirma una venta como una sola unidad: stock, factura, libro, bitácora y saldo.
type Coordinator struct {
	tx  SaleTxRunner
	now func() time.Time
}

// NewCoordinator construye el coordinador.
func NewCoordinator(tx SaleTxRunner) *Coordinator {
	return &Coordinator{tx: tx, now: time.Now}
}

// Commit aplica la venta o no aplica nada.
//
// Dentro de la unidad se bloquean los productos (en orden de ID), se verifica si la factura ya
// existe (reintento idempotente), se revalida cada descuento contra las filas bloqueadas y se
// escriben todos los registros derivados. Si el stock ya no alcanza o el precio cambió desde la
// cotización devuelve domain.ErrStockConflict: el llamador debe volver a cotizar.
func (c *Coordinator) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	inv := in.Invoice
	if inv == nil || inv.ID == "" || inv.CompanyID == "" {
		return nil, fmt.Errorf("%w: factura incompleta", domain.ErrInvalidInput)
	}

	var result *CommitResult
	err := c.tx.RunSale(ctx, func(
		productRepo repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
		ledgerRepo repository.LedgerRepository,
		auditRepo repository.AuditRepository,
		partyRepo repository.PartyRepository,
	) error {
		ids := make([]string, 0, len(in.Decrements))
		for _, d := range in.Decrements {
			ids = append(ids, d.ProductID)
		}
		locked, err := productRepo.GetForUpdate(ctx, inv.CompanyID, ids)
		if err != nil {
			return err
		}

		existing, err := invoiceRepo.GetByID(ctx, inv.CompanyID, inv.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &CommitResult{InvoiceID: existing.ID, Total: existing.Total, Replayed: true}
			return nil
		}

		for _, d := range in.Decrements {
			p := locked[d.ProductID]
			if p == nil {
				return &domain.ProductNotFoundError{ProductID: d.ProductID}
			}
			if p.Stock < d.Quantity || !p.Price.Equal(d.ExpectedPrice) {
				return fmt.Errorf("%w: producto %s", domain.ErrStockConflict, d.ProductID)
			}
		}
		for _, d := range in.Decrements {
			if err := productRepo.AdjustStock(ctx, inv.CompanyID, d.ProductID, -d.Quantity); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) {
					return fmt.Errorf("%w: producto %s", domain.ErrStockConflict, d.ProductID)
				}
				return err
			}
		}

		if err := invoiceRepo.Create(ctx, inv); err != nil {
			return err
		}

		now := c.now()
		if err := ledgerRepo.Create(ctx, &entity.LedgerEntry{
			ID:        uuid.New().String(),
			CompanyID: inv.CompanyID,
			SourceID:  inv.ID,
			Date:      inv.Date,
			Type:      entity.LedgerTypeSale,
			Reference: inv.Number,
			PartyName: inv.CustomerName,
			Amount:    inv.Total,
			Status:    inv.Status,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}

		if err := auditRepo.Append(ctx, &entity.AuditLog{
			ID:        uuid.New().String(),
			CompanyID: inv.CompanyID,
			Action:    entity.AuditActionCreateSale,
			Detail:    fmt.Sprintf("Factura %s a %s por %s (%s)", displayNumber(inv), displayParty(inv.CustomerName), inv.Total.StringFixed(2), inv.Status),
			ActorID:   in.ActorID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if inv.Status == entity.InvoiceStatusPending && inv.CustomerName != "" {
			if err := partyRepo.AdjustBalance(ctx, inv.CompanyID, inv.CustomerName, entity.PartyTypeCustomer, inv.Total); err != nil {
				return err
			}
		}

		result = &CommitResult{InvoiceID: inv.ID, Total: inv.Total}
		return nil
	})

	if errors.Is(err, domain.ErrDuplicate) {
		// Otro commit con el mismo ID ganó la carrera; su resultado es el nuestro.
		return c.replay(ctx, inv.CompanyID, inv.ID)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) replay(ctx context.Context, companyID, invoiceID string) (*CommitResult, error) {
	var result *CommitResult
	err := c.tx.RunSale(ctx, func(
		_ repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
		_ repository.LedgerRepository,
		_ repository.AuditRepository,
		_ repository.PartyRepository,
	) error {
		existing, err := invoiceRepo.GetByID(ctx, companyID, invoiceID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("factura %s duplicada pero no encontrada", invoiceID)
		}
		result = &CommitResult{InvoiceID: existing.ID, Total: existing.Total, Replayed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func displayNumber(inv *entity.Invoice) string {
	if inv.Number != "" {
		return inv.Number
	}
	return inv.ID
}

func displayParty(name string) string {
	if name == "" {
		return "cliente sin nombre"
	}
	return name
}
