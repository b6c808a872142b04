package sales

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
	"github.com/jhoicas/facturacion-api/pkg/logger"
)

// InvoiceUseCase operaciones sobre facturas ya confirmadas: cambio de estado, anulación y consultas.
type InvoiceUseCase struct {
	tx       SaleTxRunner
	invoices repository.InvoiceRepository
	ledger   repository.LedgerRepository
	audit    repository.AuditRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	tx SaleTxRunner,
	invoices repository.InvoiceRepository,
	ledger repository.LedgerRepository,
	audit repository.AuditRepository,
	log *logger.Logger,
) *InvoiceUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &InvoiceUseCase{tx: tx, invoices: invoices, ledger: ledger, audit: audit, log: log.Component("invoices"), now: time.Now}
}

// SetStatus mueve la factura entre Pending y Paid. En la misma unidad actualiza el libro,
// ajusta el saldo del cliente (Pending->Paid resta el total, Paid->Pending lo suma) y deja
// constancia en la bitácora. Pedir el estado actual no hace nada.
func (uc *InvoiceUseCase) SetStatus(ctx context.Context, principal entity.Principal, invoiceID, status string) (*dto.InvoiceResponse, error) {
	if !principal.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if !entity.IsValidInvoiceStatus(status) {
		return nil, fmt.Errorf("%w: status debe ser Paid o Pending", domain.ErrInvalidInput)
	}
	invoiceID, err := normalizeInvoiceID(invoiceID)
	if err != nil {
		return nil, err
	}
	companyID := principal.CompanyID

	var updated *entity.Invoice
	err = uc.tx.RunSale(ctx, func(
		_ repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
		ledgerRepo repository.LedgerRepository,
		auditRepo repository.AuditRepository,
		partyRepo repository.PartyRepository,
	) error {
		inv, err := invoiceRepo.GetForUpdate(ctx, companyID, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if inv.Status == status {
			updated = inv
			return nil
		}

		now := uc.now()
		previous := inv.Status
		if err := invoiceRepo.UpdateStatus(ctx, companyID, inv.ID, status, now); err != nil {
			return err
		}
		if err := ledgerRepo.UpdateStatusBySource(ctx, companyID, inv.ID, status, now); err != nil {
			return err
		}
		if inv.CustomerName != "" {
			delta := inv.Total
			if status == entity.InvoiceStatusPaid {
				delta = delta.Neg()
			}
			if err := partyRepo.AdjustBalance(ctx, companyID, inv.CustomerName, entity.PartyTypeCustomer, delta); err != nil {
				return err
			}
		}
		if err := auditRepo.Append(ctx, &entity.AuditLog{
			ID:        uuid.New().String(),
			CompanyID: companyID,
			Action:    entity.AuditActionStatusChange,
			Detail:    fmt.Sprintf("Factura %s: %s -> %s (%s)", displayNumber(inv), previous, status, inv.Total.StringFixed(2)),
			ActorID:   principal.UserID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		inv.Status = status
		inv.UpdatedAt = now
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("business_id", companyID).Str("invoice_id", invoiceID).Str("status", status).Msg("estado de factura actualizado")
	resp := ToInvoiceResponse(updated)
	return &resp, nil
}

// Delete anula la factura: devuelve el stock de sus líneas de inventario, quita la proyección del
// libro, revierte el saldo pendiente del cliente y la elimina, todo en una unidad.
func (uc *InvoiceUseCase) Delete(ctx context.Context, principal entity.Principal, invoiceID string) error {
	if !principal.Authenticated() {
		return domain.ErrUnauthenticated
	}
	invoiceID, err := normalizeInvoiceID(invoiceID)
	if err != nil {
		return err
	}
	companyID := principal.CompanyID

	err = uc.tx.RunSale(ctx, func(
		productRepo repository.ProductRepository,
		invoiceRepo repository.InvoiceRepository,
		ledgerRepo repository.LedgerRepository,
		auditRepo repository.AuditRepository,
		partyRepo repository.PartyRepository,
	) error {
		inv, err := invoiceRepo.GetForUpdate(ctx, companyID, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}

		restore := inv.StockDecrements()
		ids := make([]string, 0, len(restore))
		for id := range restore {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := productRepo.AdjustStock(ctx, companyID, id, restore[id]); err != nil {
				return fmt.Errorf("restaurar stock de %s: %w", id, err)
			}
		}

		if err := ledgerRepo.DeleteBySource(ctx, companyID, inv.ID); err != nil {
			return err
		}
		if inv.Status == entity.InvoiceStatusPending && inv.CustomerName != "" {
			if err := partyRepo.AdjustBalance(ctx, companyID, inv.CustomerName, entity.PartyTypeCustomer, inv.Total.Neg()); err != nil {
				return err
			}
		}
		if err := invoiceRepo.Delete(ctx, companyID, inv.ID); err != nil {
			return err
		}
		return auditRepo.Append(ctx, &entity.AuditLog{
			ID:        uuid.New().String(),
			CompanyID: companyID,
			Action:    entity.AuditActionDeleteInvoice,
			Detail:    fmt.Sprintf("Factura %s anulada (%s)", displayNumber(inv), inv.Total.StringFixed(2)),
			ActorID:   principal.UserID,
			CreatedAt: uc.now(),
		})
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("business_id", companyID).Str("invoice_id", invoiceID).Msg("factura anulada")
	return nil
}

// Get devuelve la factura con sus líneas.
func (uc *InvoiceUseCase) Get(ctx context.Context, companyID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := uc.GetEntity(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// GetEntity devuelve la entidad (para render de PDF).
func (uc *InvoiceUseCase) GetEntity(ctx context.Context, companyID, invoiceID string) (*entity.Invoice, error) {
	invoiceID, err := normalizeInvoiceID(invoiceID)
	if err != nil {
		return nil, err
	}
	inv, err := uc.invoices.GetByID(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

// List lista cabeceras de facturas.
func (uc *InvoiceUseCase) List(ctx context.Context, companyID string, page dto.PageRequest) (*dto.InvoiceListResponse, error) {
	page.DefaultPage()
	list, err := uc.invoices.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.InvoiceListResponse{Items: make([]dto.InvoiceResponse, 0, len(list)), Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}
	for _, inv := range list {
		r := ToInvoiceResponse(inv)
		r.Items = nil
		out.Items = append(out.Items, r)
	}
	return out, nil
}

// ListLedger lista el libro de transacciones.
func (uc *InvoiceUseCase) ListLedger(ctx context.Context, companyID string, page dto.PageRequest) (*dto.LedgerListResponse, error) {
	page.DefaultPage()
	list, err := uc.ledger.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.LedgerListResponse{Items: make([]dto.LedgerEntryResponse, 0, len(list)), Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}
	for _, e := range list {
		out.Items = append(out.Items, dto.LedgerEntryResponse{
			ID: e.ID, SourceID: e.SourceID, Date: e.Date, Type: e.Type, Reference: e.Reference,
			PartyName: e.PartyName, Amount: e.Amount, Status: e.Status,
		})
	}
	return out, nil
}

// ListAudit lista la bitácora.
func (uc *InvoiceUseCase) ListAudit(ctx context.Context, companyID string, page dto.PageRequest) (*dto.AuditListResponse, error) {
	page.DefaultPage()
	list, err := uc.audit.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.AuditListResponse{Items: make([]dto.AuditLogResponse, 0, len(list)), Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}
	for _, a := range list {
		out.Items = append(out.Items, dto.AuditLogResponse{ID: a.ID, Action: a.Action, Detail: a.Detail, ActorID: a.ActorID, CreatedAt: a.CreatedAt})
	}
	return out, nil
}

// ToInvoiceResponse mapea la entidad al DTO.
func ToInvoiceResponse(inv *entity.Invoice) dto.InvoiceResponse {
	r := dto.InvoiceResponse{
		ID:           inv.ID,
		CompanyID:    inv.CompanyID,
		Number:       inv.Number,
		Date:         inv.Date,
		CustomerName: inv.CustomerName,
		Subtotal:     inv.Subtotal,
		TaxRate:      inv.TaxRate,
		TaxAmount:    inv.TaxAmount,
		Total:        inv.Total,
		Status:       inv.Status,
		CreatedBy:    inv.CreatedBy,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
	for _, it := range inv.Items {
		r.Items = append(r.Items, dto.InvoiceItemResponse{
			Position:    it.Position,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return r
}

// normalizeInvoiceID lleva el id a la forma canónica con la que CreateSale guarda la factura.
// Un id que no es UUID no puede corresponder a ninguna factura.
func normalizeInvoiceID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", domain.ErrNotFound
	}
	return parsed.String(), nil
}
