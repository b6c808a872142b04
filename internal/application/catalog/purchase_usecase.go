package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/inventory"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// PurchaseUseCase registra entradas de mercancía: incrementa stock, recalcula el costo promedio
// y deja la compra en el libro.
type PurchaseUseCase struct {
	tx  TxRunner
	now func() time.Time
}

// NewPurchaseUseCase construye el caso de uso.
func NewPurchaseUseCase(tx TxRunner) *PurchaseUseCase {
	return &PurchaseUseCase{tx: tx, now: time.Now}
}

// RecordPurchase aplica todos los incrementos o ninguno.
func (uc *PurchaseUseCase) RecordPurchase(ctx context.Context, principal entity.Principal, in dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	if !principal.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: la compra no tiene líneas", domain.ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = entity.InvoiceStatusPaid
	}
	if !entity.IsValidInvoiceStatus(status) {
		return nil, fmt.Errorf("%w: status debe ser Paid o Pending", domain.ErrInvalidInput)
	}

	increments := make(map[string]int)
	costs := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for i, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 || it.UnitCost.IsNegative() {
			return nil, fmt.Errorf("%w: línea %d inválida", domain.ErrInvalidInput, i+1)
		}
		if it.Quantity > entity.MaxQuantity-increments[it.ProductID] {
			return nil, fmt.Errorf("%w: línea %d: la cantidad supera el máximo de %d", domain.ErrInvalidInput, i+1, entity.MaxQuantity)
		}
		lineCost := it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity)))
		increments[it.ProductID] += it.Quantity
		costs[it.ProductID] = costs[it.ProductID].Add(lineCost)
		total = total.Add(lineCost)
	}
	total = total.Round(2)

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.New().String()
	}
	now := uc.now()
	date := now
	if in.Date != "" {
		d, err := time.Parse(time.DateOnly, in.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: fecha inválida %q", domain.ErrInvalidInput, in.Date)
		}
		date = d
	}

	ids := make([]string, 0, len(increments))
	for pid := range increments {
		ids = append(ids, pid)
	}
	sort.Strings(ids)

	err := uc.tx.Run(ctx, func(productRepo repository.ProductRepository, ledgerRepo repository.LedgerRepository, auditRepo repository.AuditRepository) error {
		locked, err := productRepo.GetForUpdate(ctx, principal.CompanyID, ids)
		if err != nil {
			return err
		}
		for _, pid := range ids {
			product := locked[pid]
			if product == nil {
				return &domain.ProductNotFoundError{ProductID: pid}
			}
			qty := increments[pid]
			if qty > entity.MaxQuantity-product.Stock {
				return fmt.Errorf("%w: el stock de %s superaría el máximo de %d", domain.ErrInvalidInput, pid, entity.MaxQuantity)
			}
			unitCost := costs[pid].Div(decimal.NewFromInt(int64(qty)))
			product.Cost = inventory.AverageCost(product.Stock, product.Cost, qty, unitCost)
			product.UpdatedAt = now
			if err := productRepo.Update(ctx, product); err != nil {
				return err
			}
			if err := productRepo.AdjustStock(ctx, principal.CompanyID, pid, qty); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return &domain.ProductNotFoundError{ProductID: pid}
				}
				return err
			}
		}
		if err := ledgerRepo.Create(ctx, &entity.LedgerEntry{
			ID:        uuid.New().String(),
			CompanyID: principal.CompanyID,
			SourceID:  id,
			Date:      date,
			Type:      entity.LedgerTypePurchase,
			Reference: in.Reference,
			PartyName: strings.TrimSpace(in.SupplierName),
			Amount:    total,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		return auditRepo.Append(ctx, &entity.AuditLog{
			ID:        uuid.New().String(),
			CompanyID: principal.CompanyID,
			Action:    entity.AuditActionPurchase,
			Detail:    fmt.Sprintf("Compra %s a %s por %s: %d producto(s)", in.Reference, in.SupplierName, total.StringFixed(2), len(ids)),
			ActorID:   principal.UserID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return &dto.PurchaseResponse{ID: id, Total: total}, nil
}
