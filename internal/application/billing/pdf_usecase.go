package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/facturacion-api/internal/domain"
)

// PDFUseCase genera el PDF de una factura de venta ya confirmada.
type PDFUseCase struct {
	invoices   InvoiceSource
	generator  InvoicePDFGenerator
	issuerName string
}

// NewPDFUseCase construye el caso de uso. issuerName es el nombre comercial que encabeza el documento.
func NewPDFUseCase(invoices InvoiceSource, generator InvoicePDFGenerator, issuerName string) *PDFUseCase {
	return &PDFUseCase{invoices: invoices, generator: generator, issuerName: issuerName}
}

// DownloadInvoicePDF recupera la factura y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la factura no existe en la empresa del token.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, companyID, invoiceID string) (pdfBytes []byte, filename string, err error) {
	inv, err := uc.invoices.GetEntity(ctx, companyID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}

	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, inv, Issuer{Name: uc.issuerName, CompanyID: companyID})
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, Filename(inv.Number, inv.ID), nil
}

// Filename nombre del adjunto: usa el número visible si existe, si no el id.
func Filename(number, id string) string {
	base := strings.TrimSpace(number)
	if base == "" {
		base = id
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	return "factura_" + base + ".pdf"
}
