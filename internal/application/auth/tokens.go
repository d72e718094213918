package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/repository"
	"github.com/jhoicas/recon-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens. Access y refresh usan secretos distintos.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// AccessClaims identidad verificada de un access token.
type AccessClaims struct {
	Subject string
	Role    entity.Role
}

// TokenPair access + refresh emitidos juntos.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// TokenIssuer emite y verifica tokens bearer.
type TokenIssuer struct {
	cfg      JWTConfig
	users    repository.UserRepository
	denylist repository.TokenDenylist
}

// NewTokenIssuer construye el emisor.
func NewTokenIssuer(cfg JWTConfig, users repository.UserRepository, denylist repository.TokenDenylist) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, users: users, denylist: denylist}
}

// IssueAccessToken access token de vida corta con {subject, role}.
func (t *TokenIssuer) IssueAccessToken(user *entity.User) (string, error) {
	tok, _, err := jwt.GenerateAccess(t.cfg.AccessSecret, t.cfg.Issuer, user.ID, string(user.Role), t.cfg.AccessTTL)
	return tok, err
}

// IssueRefreshToken refresh token de vida larga que solo lleva el subject.
func (t *TokenIssuer) IssueRefreshToken(user *entity.User) (string, error) {
	tok, _, err := jwt.GenerateRefresh(t.cfg.RefreshSecret, t.cfg.Issuer, user.ID, t.cfg.RefreshTTL)
	return tok, err
}

// IssuePair emite ambos tokens.
func (t *TokenIssuer) IssuePair(user *entity.User) (*TokenPair, error) {
	access, err := t.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := t.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    t.cfg.AccessTTL,
		RefreshTTL:   t.cfg.RefreshTTL,
	}, nil
}

// VerifyAccess solo verifica firma y vigencia; no hace I/O.
func (t *TokenIssuer) VerifyAccess(token string) (*AccessClaims, error) {
	return VerifyAccessToken(t.cfg.AccessSecret, token)
}

// VerifyAccessToken verificación sin estado, usable desde el middleware HTTP.
func VerifyAccessToken(secret, token string) (*AccessClaims, error) {
	claims, err := jwt.ParseAccess(secret, token)
	if err != nil {
		return nil, mapJWTError(err)
	}
	role, err := entity.ParseRole(claims.Role)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &AccessClaims{Subject: claims.Subject, Role: role}, nil
}

// Refresh rota el refresh token: revoca el presentado y emite un par nuevo con el rol
// vigente del usuario (no el del token), de modo que un cambio de rol aplica de inmediato.
func (t *TokenIssuer) Refresh(ctx context.Context, refreshToken string) (*entity.User, *TokenPair, error) {
	claims, err := t.parseRefresh(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	user, err := t.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil, domain.ErrTokenInvalid
	}
	first, err := t.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, nil, fmt.Errorf("revocar refresh token: %w", err)
	}
	if !first {
		// Otro refresh concurrente ya canjeó este token.
		return nil, nil, domain.ErrTokenInvalid
	}
	pair, err := t.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Revoke invalida un refresh token hasta su vencimiento (logout).
func (t *TokenIssuer) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := t.parseRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if _, err := t.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revocar refresh token: %w", err)
	}
	return nil
}

func (t *TokenIssuer) parseRefresh(ctx context.Context, refreshToken string) (*jwt.Claims, error) {
	claims, err := jwt.ParseRefresh(t.cfg.RefreshSecret, refreshToken)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrTokenInvalid
	}
	revoked, err := t.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("consultar revocación: %w", err)
	}
	if revoked {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrExpired) {
		return domain.ErrTokenExpired
	}
	return domain.ErrTokenInvalid
}
