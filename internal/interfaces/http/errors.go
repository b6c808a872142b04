package http

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturacion-api/internal/application/dto"
	"github.com/jhoicas/facturacion-api/internal/application/ratelimit"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/pkg/logger"
)

// mapError traduce un error de la capa de aplicación a status HTTP y cuerpo estable.
// Los errores no clasificados salen como INTERNAL sin exponer el detalle.
func mapError(err error) (int, dto.ErrorResponse) {
	var (
		rejected     *ratelimit.RejectedError
		notFound     *domain.ProductNotFoundError
		insufficient *domain.InsufficientStockError
		fiberErr     *fiber.Error
	)
	switch {
	case errors.As(err, &rejected):
		return fiber.StatusTooManyRequests, dto.ErrorResponse{
			Code:    "RATE_LIMITED",
			Message: "demasiadas solicitudes, intente más tarde",
			Details: dto.RateLimitedDetails{RetryAfterSeconds: retryAfterSeconds(rejected)},
		}
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests, dto.ErrorResponse{Code: "RATE_LIMITED", Message: "demasiadas solicitudes, intente más tarde"}
	case errors.Is(err, domain.ErrRateLimitUnavailable):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "RATE_LIMIT_UNAVAILABLE", Message: "no se pudo verificar el límite de solicitudes, intente más tarde"}
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, dto.ErrorResponse{
			Code:    "PRODUCT_NOT_FOUND",
			Message: notFound.Error(),
			Details: dto.ProductNotFoundDetails{ProductID: notFound.ProductID},
		}
	case errors.As(err, &insufficient):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: insufficient.Error(),
			Details: dto.InsufficientStockDetails{
				ProductID: insufficient.ProductID,
				Available: insufficient.Available,
				Requested: insufficient.Requested,
			},
		}
	case errors.Is(err, domain.ErrStockConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "STOCK_CONFLICT", Message: "el inventario cambió durante la operación, vuelva a intentar"}
	case errors.Is(err, domain.ErrUnauthenticated):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: codeUnauthenticated, Message: "no autenticado"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"}
	case errors.As(err, &fiberErr):
		return fiberErr.Code, dto.ErrorResponse{Code: "HTTP_" + strconv.Itoa(fiberErr.Code), Message: fiberErr.Message}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
	}
}

func retryAfterSeconds(e *ratelimit.RejectedError) int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// writeError responde con el error mapeado. Un rechazo del limitador agrega Retry-After.
func writeError(c *fiber.Ctx, err error) error {
	status, body := mapError(err)
	var rejected *ratelimit.RejectedError
	if errors.As(err, &rejected) {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(rejected)))
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler manejador de errores de Fiber (rutas inexistentes, panics recuperados, etc.).
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		status, _ := mapError(err)
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
		}
		return writeError(c, err)
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "cuerpo inválido"})
}
