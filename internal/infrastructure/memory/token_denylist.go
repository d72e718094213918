package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/recon-api/internal/domain/repository"
)

var _ repository.TokenDenylist = (*TokenDenylist)(nil)

// TokenDenylist jti revocados con su vencimiento; las entradas vencidas se purgan al revocar.
type TokenDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewTokenDenylist construye la lista vacía.
func NewTokenDenylist() *TokenDenylist {
	return &TokenDenylist{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke marca el jti como revocado hasta until; verificación y escritura bajo el mismo lock.
func (d *TokenDenylist) Revoke(_ context.Context, jti string, until time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for k, exp := range d.entries {
		if !exp.After(now) {
			delete(d.entries, k)
		}
	}
	if !until.After(now) {
		return false, nil
	}
	if _, ok := d.entries[jti]; ok {
		return false, nil
	}
	d.entries[jti] = until
	return true, nil
}

// IsRevoked indica si el jti sigue revocado.
func (d *TokenDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.entries[jti]
	return ok && exp.After(d.now()), nil
}
