package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/domain/repository"
)

// ProductUseCase casos de uso CRUD para productos. El stock solo se mueve por ventas y compras.
type ProductUseCase struct {
	tx   TxRunner
	repo repository.ProductRepository
	now  func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(tx TxRunner, repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{tx: tx, repo: repo, now: time.Now}
}

// Create crea un producto con su stock inicial y lo registra en la bitácora.
func (uc *ProductUseCase) Create(ctx context.Context, principal entity.Principal, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price.IsNegative() || in.Cost.IsNegative() || in.Stock < 0 || in.Stock > entity.MaxQuantity {
		return nil, domain.ErrInvalidInput
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "und"
	}
	now := uc.now()
	product := &entity.Product{
		ID:        uuid.New().String(),
		CompanyID: principal.CompanyID,
		SKU:       strings.TrimSpace(in.SKU),
		Name:      name,
		Price:     in.Price.Round(2),
		Cost:      in.Cost.Round(4),
		Stock:     in.Stock,
		Unit:      unit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := uc.tx.Run(ctx, func(productRepo repository.ProductRepository, _ repository.LedgerRepository, auditRepo repository.AuditRepository) error {
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		return auditRepo.Append(ctx, &entity.AuditLog{
			ID:        uuid.New().String(),
			CompanyID: principal.CompanyID,
			Action:    entity.AuditActionCreateProduct,
			Detail:    fmt.Sprintf("Producto %s creado a %s con stock %d", product.Name, product.Price.StringFixed(2), product.Stock),
			ActorID:   principal.UserID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto de la empresa.
func (uc *ProductUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return toProductResponse(product), nil
}

// Update cambia nombre, SKU, precio o unidad. Un cambio de precio hace que las ventas cotizadas
// con el precio anterior se recotizen en el commit.
func (uc *ProductUseCase) Update(ctx context.Context, principal entity.Principal, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	var product *entity.Product
	err := uc.tx.Run(ctx, func(productRepo repository.ProductRepository, _ repository.LedgerRepository, auditRepo repository.AuditRepository) error {
		locked, err := productRepo.GetForUpdate(ctx, principal.CompanyID, []string{id})
		if err != nil {
			return err
		}
		product = locked[id]
		if product == nil {
			return domain.ErrNotFound
		}
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return domain.ErrInvalidInput
			}
			product.Name = strings.TrimSpace(*in.Name)
		}
		if in.SKU != nil {
			product.SKU = strings.TrimSpace(*in.SKU)
		}
		if in.Price != nil {
			if in.Price.IsNegative() {
				return domain.ErrInvalidInput
			}
			product.Price = in.Price.Round(2)
		}
		if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
			product.Unit = strings.TrimSpace(*in.Unit)
		}
		product.UpdatedAt = uc.now()
		if err := productRepo.Update(ctx, product); err != nil {
			return err
		}
		return auditRepo.Append(ctx, &entity.AuditLog{
			ID:        uuid.New().String(),
			CompanyID: principal.CompanyID,
			Action:    entity.AuditActionUpdateProduct,
			Detail:    fmt.Sprintf("Producto %s actualizado (precio %s)", product.Name, product.Price.StringFixed(2)),
			ActorID:   principal.UserID,
			CreatedAt: product.UpdatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos por empresa con paginación.
func (uc *ProductUseCase) List(ctx context.Context, companyID string, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:        p.ID,
		CompanyID: p.CompanyID,
		SKU:       p.SKU,
		Name:      p.Name,
		Price:     p.Price,
		Cost:      p.Cost,
		Stock:     p.Stock,
		Unit:      p.Unit,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
