package repository

import (
	"context"
	"time"
)

// TokenDenylist lista de refresh tokens revocados (por jti) hasta su vencimiento.
type TokenDenylist interface {
	// Revoke marca el jti de forma atómica. first es true solo para la llamada que lo
	// revocó; false si ya estaba revocado o si until ya pasó.
	Revoke(ctx context.Context, jti string, until time.Time) (first bool, err error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
