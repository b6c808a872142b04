package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/application/sales"
)

// LedgerHandler proyecciones de solo lectura: libro de transacciones y bitácora.
type LedgerHandler struct {
	uc *sales.InvoiceUseCase
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(uc *sales.InvoiceUseCase) *LedgerHandler {
	return &LedgerHandler{uc: uc}
}

// Transactions godoc
// @Summary      Libro de transacciones (ventas y compras)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {object}  dto.LedgerListResponse
// @Router       /api/transactions [get]
func (h *LedgerHandler) Transactions(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	out, err := h.uc.ListLedger(c.Context(), GetCompanyID(c), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AuditLogs godoc
// @Summary      Bitácora de operaciones
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(20)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {object}  dto.AuditListResponse
// @Router       /api/audit-logs [get]
func (h *LedgerHandler) AuditLogs(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	out, err := h.uc.ListAudit(c.Context(), GetCompanyID(c), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
