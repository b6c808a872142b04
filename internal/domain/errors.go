package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrDuplicate            = errors.New("recurso duplicado")
	ErrUnauthenticated      = errors.New("no autenticado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrRateLimited          = errors.New("demasiadas solicitudes")
	ErrRateLimitUnavailable = errors.New("no se pudo verificar el límite de solicitudes")
	ErrProductNotFound      = errors.New("producto no encontrado")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	// ErrStockConflict: el stock o el precio cambió entre la lectura de precios y el commit.
	// El llamador debe volver a cotizar, no reenviar los mismos totales.
	ErrStockConflict = errors.New("el inventario cambió durante la operación")
)

// ProductNotFoundError identifica el producto que no existe en el catálogo de la empresa.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("producto no encontrado: %s", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError detalla el faltante de un producto.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
