package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-api/internal/application/billing"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
)

type fakeSource struct {
	inv *entity.Invoice
	err error
}

func (f *fakeSource) GetEntity(_ context.Context, companyID, invoiceID string) (*entity.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.inv == nil || f.inv.CompanyID != companyID || f.inv.ID != invoiceID {
		return nil, domain.ErrNotFound
	}
	return f.inv, nil
}

type fakeGenerator struct {
	issuer billing.Issuer
	err    error
}

func (g *fakeGenerator) GenerateInvoicePDF(_ context.Context, _ *entity.Invoice, issuer billing.Issuer) ([]byte, error) {
	g.issuer = issuer
	if g.err != nil {
		return nil, g.err
	}
	return []byte("%PDF-1.3"), nil
}

func TestPDFUseCase_Descarga(t *testing.T) {
	inv := &entity.Invoice{ID: "9b2f", CompanyID: "c1", Number: "INV 001", Total: decimal.NewFromInt(10)}
	gen := &fakeGenerator{}
	uc := billing.NewPDFUseCase(&fakeSource{inv: inv}, gen, "Tienda Central")

	data, name, err := uc.DownloadInvoicePDF(context.Background(), "c1", "9b2f")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
	assert.Equal(t, "factura_INV_001.pdf", name)
	assert.Equal(t, "Tienda Central", gen.issuer.Name)
}

func TestPDFUseCase_NoExiste(t *testing.T) {
	uc := billing.NewPDFUseCase(&fakeSource{}, &fakeGenerator{}, "x")
	_, _, err := uc.DownloadInvoicePDF(context.Background(), "c1", "nada")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPDFUseCase_ErrorDelGenerador(t *testing.T) {
	inv := &entity.Invoice{ID: "a", CompanyID: "c1"}
	uc := billing.NewPDFUseCase(&fakeSource{inv: inv}, &fakeGenerator{err: errors.New("sin fuentes")}, "x")
	_, _, err := uc.DownloadInvoicePDF(context.Background(), "c1", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sin fuentes")
}

func TestFilename_UsaIDSinNumero(t *testing.T) {
	assert.Equal(t, "factura_abc-1.pdf", billing.Filename("", "abc-1"))
	assert.Equal(t, "factura_A_B.pdf", billing.Filename(" A/B ", "x"))
}
