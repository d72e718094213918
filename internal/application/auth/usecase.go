package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/recon-api/internal/application/dto"
	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/pkg/logger"
)

// AuthUseCase casos de uso de autenticación: login por PIN, refresh y logout.
type AuthUseCase struct {
	credentials *CredentialStore
	tokens      *TokenIssuer
	log         *logger.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(credentials *CredentialStore, tokens *TokenIssuer, log *logger.Logger) *AuthUseCase {
	return &AuthUseCase{credentials: credentials, tokens: tokens, log: log.Component("auth")}
}

// Login resuelve la identidad (PIN, o identificador + PIN) y emite el par de tokens.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.credentials.Authenticate(ctx, in.Identifier, in.Pin)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			uc.log.Warn().Str("identifier", in.Identifier).Msg("login rechazado")
		}
		return nil, err
	}
	pair, err := uc.tokens.IssuePair(user)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("login")
	return &dto.LoginResponse{
		User:         *toUserResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccessTTL:    seconds(pair.AccessTTL),
		RefreshTTL:   seconds(pair.RefreshTTL),
	}, nil
}

// Refresh emite un nuevo par a partir de un refresh token vigente y no revocado.
func (uc *AuthUseCase) Refresh(ctx context.Context, in dto.RefreshRequest) (*dto.TokenPairResponse, error) {
	if in.RefreshToken == "" {
		return nil, domain.ErrInvalidInput
	}
	user, pair, err := uc.tokens.Refresh(ctx, in.RefreshToken)
	if err != nil {
		uc.log.Warn().Err(err).Msg("refresh rechazado")
		return nil, err
	}
	uc.log.Debug().Str("user_id", user.ID).Msg("refresh")
	return &dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccessTTL:    seconds(pair.AccessTTL),
		RefreshTTL:   seconds(pair.RefreshTTL),
	}, nil
}

// Logout revoca el refresh token presentado.
func (uc *AuthUseCase) Logout(ctx context.Context, in dto.RefreshRequest) error {
	if in.RefreshToken == "" {
		return domain.ErrInvalidInput
	}
	return uc.tokens.Revoke(ctx, in.RefreshToken)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:             u.ID,
		DisplayName:    u.DisplayName,
		Username:       u.Username,
		EmployeeNumber: u.EmployeeNumber,
		PhoneNumber:    u.PhoneNumber,
		Role:           string(u.Role),
		IsActive:       u.IsActive,
		HasPin:         u.HasPin(),
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
