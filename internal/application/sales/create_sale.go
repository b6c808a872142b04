package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/pkg/logger"
)

// DefaultCommitAttempts intentos de cotizar+confirmar ante ErrStockConflict.
const DefaultCommitAttempts = 3

// Config parámetros del caso de uso.
type Config struct {
	DefaultTaxRate    decimal.Decimal
	MaxCommitAttempts int
}

// CreateSaleUseCase es el único camino aceptado para crear una venta: recotiza contra el
// catálogo, valida stock, aplica el límite por usuario y confirma todo en una unidad.
type CreateSaleUseCase struct {
	limiter     RateLimiter
	catalog     CatalogReader
	invoices    InvoiceReader
	coordinator *Coordinator
	cfg         Config
	log         *logger.Logger
	now         func() time.Time
}

// NewCreateSaleUseCase construye el caso de uso.
func NewCreateSaleUseCase(
	limiter RateLimiter,
	catalog CatalogReader,
	invoices InvoiceReader,
	coordinator *Coordinator,
	cfg Config,
	log *logger.Logger,
) *CreateSaleUseCase {
	if cfg.MaxCommitAttempts <= 0 {
		cfg.MaxCommitAttempts = DefaultCommitAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CreateSaleUseCase{
		limiter:     limiter,
		catalog:     catalog,
		invoices:    invoices,
		coordinator: coordinator,
		cfg:         cfg,
		log:         log.Component("sales"),
		now:         time.Now,
	}
}

// CreateSale procesa un borrador de venta.
//
// Orden: identidad, alcance de empresa, forma del borrador, límite por usuario, cotización y
// commit. Ningún error después del límite deja efectos persistidos.
func (uc *CreateSaleUseCase) CreateSale(ctx context.Context, principal entity.Principal, req dto.CreateSaleRequest) (*dto.CreateSaleResponse, error) {
	if !principal.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	companyID := principal.CompanyID
	if req.BusinessID != "" && req.BusinessID != companyID {
		return nil, domain.ErrForbidden
	}

	draft, err := uc.parseDraft(req.InvoiceData)
	if err != nil {
		return nil, err
	}

	if err := uc.limiter.Admit(ctx, principal.UserID); err != nil {
		uc.log.Warn().Err(err).
			Str("business_id", companyID).Str("user_id", principal.UserID).Str("invoice_id", draft.id).
			Msg("venta rechazada por límite de solicitudes")
		return nil, err
	}

	// Un reintento de una venta ya confirmada no se vuelve a cotizar: el stock ya fue descontado.
	if res, ok, err := uc.lookupCommitted(ctx, companyID, draft.id); err != nil || ok {
		return res, err
	}

	ids := ProductIDs(draft.items)
	for attempt := 1; ; attempt++ {
		snapshot, err := uc.catalog.GetByIDs(ctx, companyID, ids)
		if err != nil {
			return nil, fmt.Errorf("leer catálogo: %w", err)
		}
		priced, err := PriceAndValidate(snapshot, draft.items, draft.taxRate)
		if err != nil {
			// La misma factura pudo confirmarse en paralelo y agotar el stock que vemos ahora.
			if res, ok, lookupErr := uc.lookupCommitted(ctx, companyID, draft.id); lookupErr == nil && ok {
				return res, nil
			}
			uc.log.Warn().Err(err).Str("business_id", companyID).Str("invoice_id", draft.id).Msg("venta rechazada por validación")
			return nil, err
		}

		now := uc.now()
		invoice := &entity.Invoice{
			ID:           draft.id,
			CompanyID:    companyID,
			Number:       draft.number,
			Date:         draft.date,
			CustomerName: draft.customer,
			Items:        priced.Items,
			Subtotal:     priced.Subtotal,
			TaxRate:      priced.TaxRate,
			TaxAmount:    priced.TaxAmount,
			Total:        priced.Total,
			Status:       draft.status,
			CreatedBy:    principal.UserID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		res, err := uc.coordinator.Commit(ctx, CommitInput{Invoice: invoice, Decrements: priced.Decrements, ActorID: principal.UserID})
		if errors.Is(err, domain.ErrStockConflict) && attempt < uc.cfg.MaxCommitAttempts {
			uc.log.Debug().Int("attempt", attempt).Str("invoice_id", draft.id).Msg("conflicto de stock, recotizando")
			continue
		}
		if err != nil {
			uc.log.Error().Err(err).Str("business_id", companyID).Str("invoice_id", draft.id).Int("attempt", attempt).Msg("commit de venta falló")
			return nil, err
		}

		uc.log.Info().
			Str("business_id", companyID).
			Str("user_id", principal.UserID).
			Str("invoice_id", res.InvoiceID).
			Str("total", res.Total.StringFixed(2)).
			Bool("replayed", res.Replayed).
			Msg("venta registrada")
		return &dto.CreateSaleResponse{Success: true, InvoiceID: res.InvoiceID, Total: res.Total}, nil
	}
}

func (uc *CreateSaleUseCase) lookupCommitted(ctx context.Context, companyID, invoiceID string) (*dto.CreateSaleResponse, bool, error) {
	existing, err := uc.invoices.GetByID(ctx, companyID, invoiceID)
	if err != nil {
		return nil, false, fmt.Errorf("buscar factura: %w", err)
	}
	if existing == nil {
		return nil, false, nil
	}
	uc.log.Info().Str("business_id", companyID).Str("invoice_id", invoiceID).Msg("reintento de venta ya registrada")
	return &dto.CreateSaleResponse{Success: true, InvoiceID: existing.ID, Total: existing.Total}, true, nil
}

type draftSale struct {
	id       string
	number   string
	date     time.Time
	customer string
	status   string
	taxRate  decimal.Decimal
	items    []DraftItem
}

func (uc *CreateSaleUseCase) parseDraft(in dto.InvoiceDataRequest) (*draftSale, error) {
	id, err := uuid.Parse(strings.TrimSpace(in.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: id de factura debe ser un UUID", domain.ErrInvalidInput)
	}
	if !entity.IsValidInvoiceStatus(in.Status) {
		return nil, fmt.Errorf("%w: status debe ser Paid o Pending", domain.ErrInvalidInput)
	}
	date, err := parseDate(in.Date, uc.now())
	if err != nil {
		return nil, err
	}

	taxRate := uc.cfg.DefaultTaxRate
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	if err := ValidateTaxRate(taxRate); err != nil {
		return nil, err
	}

	items := make([]DraftItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, DraftItem{
			ProductID:   strings.TrimSpace(it.ProductID),
			Quantity:    it.Quantity,
			Description: it.ProductName,
		})
	}
	if err := ValidateDraft(items); err != nil {
		return nil, err
	}

	return &draftSale{
		id:       id.String(),
		number:   strings.TrimSpace(in.InvoiceNo),
		date:     date,
		customer: strings.TrimSpace(in.CustomerName),
		status:   in.Status,
		taxRate:  taxRate,
		items:    items,
	}, nil
}

func parseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: fecha inválida %q", domain.ErrInvalidInput, s)
}
