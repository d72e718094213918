package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/recon-api/internal/application/dto"
)

// activeChecker contrato mínimo para verificar que el usuario del token siga activo.
// Lo implementa *usecase.UserUseCase.
type activeChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// RequireActiveUser rechaza tokens de usuarios dados de baja después de emitido el token.
// Debe usarse DESPUÉS de AuthMiddleware.
//
// Comportamiento:
//   - 403 USER_INACTIVE → usuario desactivado o inexistente.
//   - 503 USER_CHECK_FAILED → fallo de infraestructura al consultar el usuario.
func RequireActiveUser(checker activeChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "user_id no encontrado en el token",
			})
		}
		active, err := checker.IsActive(c.UserContext(), userID)
		if err != nil {
			c.Locals(LocalError, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "USER_CHECK_FAILED",
				Message: "no se pudo verificar el usuario, intente más tarde",
			})
		}
		if !active {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "USER_INACTIVE",
				Message: "el usuario está inactivo",
			})
		}
		return c.Next()
	}
}
