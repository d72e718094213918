package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/recon-api/internal/domain/repository"
)

var _ repository.PinLocker = (*PinLocker)(nil)

// pinLockKey clave del advisory lock de asignación de PINs (compartida por todas las instancias).
const pinLockKey int64 = 0x7265636f6e70696e

// PinLocker bloqueo de PINs entre instancias con pg_advisory_lock sobre una conexión dedicada.
type PinLocker struct {
	pool *pgxpool.Pool
}

// NewPinLocker construye el bloqueo sobre el pool.
func NewPinLocker(pool *pgxpool.Pool) *PinLocker {
	return &PinLocker{pool: pool}
}

// LockPins toma el advisory lock; unlock lo libera y devuelve la conexión al pool.
func (l *PinLocker) LockPins(ctx context.Context) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, pinLockKey); err != nil {
		conn.Release()
		return nil, fmt.Errorf("pg_advisory_lock: %w", err)
	}
	return func() {
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, pinLockKey); err != nil {
			// Una sesión que no pudo soltar el lock no vuelve al pool.
			_ = conn.Conn().Close(context.Background())
		}
		conn.Release()
	}, nil
}
