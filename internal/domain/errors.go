package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrTokenExpired       = errors.New("token expirado")
	ErrTokenInvalid       = errors.New("token inválido")
	ErrForbidden          = errors.New("acceso denegado")
	ErrIllegalTransition  = errors.New("transición de estado ilegal")
	ErrConflict           = errors.New("conflicto con el estado actual")
)

// Casos particulares: errors.Is también es verdadero contra la clase que envuelven.
var (
	ErrUserNotFound = fmt.Errorf("usuario no encontrado: %w", ErrNotFound)
	ErrJobNotFound  = fmt.Errorf("trabajo no encontrado: %w", ErrNotFound)
	ErrUserInactive = fmt.Errorf("usuario inactivo: %w", ErrForbidden)
	ErrPinInUse     = fmt.Errorf("el PIN ya está asignado a otro usuario: %w", ErrConflict)
	ErrStaleVersion = fmt.Errorf("el registro fue modificado por otra operación: %w", ErrConflict)
	ErrDuplicate    = fmt.Errorf("recurso duplicado: %w", ErrConflict)
)
