// Package redis guarda la lista de refresh tokens revocados en Redis, compartida
// entre instancias de la API. Cada jti vive como clave con TTL igual a su vencimiento.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/recon-api/internal/domain/repository"
	"github.com/jhoicas/recon-api/pkg/config"
)

var _ repository.TokenDenylist = (*TokenDenylist)(nil)

const defaultKeyPrefix = "recon:revoked:"

// NewClient crea el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// TokenDenylist implementación de TokenDenylist sobre go-redis.
type TokenDenylist struct {
	client    redis.Cmdable
	keyPrefix string
	now       func() time.Time
}

// NewTokenDenylist keyPrefix vacío usa "recon:revoked:".
func NewTokenDenylist(client redis.Cmdable, keyPrefix string) *TokenDenylist {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &TokenDenylist{client: client, keyPrefix: keyPrefix, now: time.Now}
}

// Revoke SET key 1 NX EX <segundos hasta until>. Un token ya vencido no se guarda.
// Entre instancias, solo una recibe first=true para el mismo jti.
func (d *TokenDenylist) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return false, nil
	}
	first, err := d.client.SetNX(ctx, d.key(jti), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", jti, err)
	}
	return first, nil
}

// IsRevoked EXISTS key.
func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", jti, err)
	}
	return n > 0, nil
}

func (d *TokenDenylist) key(jti string) string { return d.keyPrefix + jti }
