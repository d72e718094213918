package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/recon-api/internal/application/dto"
	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/lifecycle"
	"github.com/jhoicas/recon-api/internal/domain/repository"
	"github.com/jhoicas/recon-api/pkg/logger"
)

// UserUseCase administración de la plantilla: alta, PIN, rol y baja lógica.
type UserUseCase struct {
	repo repository.UserRepository
	pins PinHasher
	log  *logger.Logger
	now  func() time.Time
}

// NewUserUseCase construye el caso de uso con el puerto de persistencia y la custodia de PINs.
func NewUserUseCase(repo repository.UserRepository, pins PinHasher, log *logger.Logger) *UserUseCase {
	return &UserUseCase{repo: repo, pins: pins, log: log.Component("users"), now: time.Now}
}

// Create da de alta un usuario activo. El PIN no puede estar en uso por otro usuario activo.
func (uc *UserUseCase) Create(ctx context.Context, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, fmt.Errorf("%w: display_name es requerido", domain.ErrInvalidInput)
	}
	role, err := entity.ParseRole(strings.TrimSpace(in.Role))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	now := uc.now()
	user := &entity.User{
		ID:             uuid.New().String(),
		DisplayName:    name,
		Username:       strings.TrimSpace(in.Username),
		EmployeeNumber: strings.TrimSpace(in.EmployeeNumber),
		ExternalUID:    strings.TrimSpace(in.ExternalUID),
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
		Role:           role,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = uc.pins.ReservePin(ctx, in.Pin, "", func(hash string) error {
		user.PinHash = hash
		return uc.repo.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("usuario creado")
	return entityToUserResponse(user), nil
}

// SetPin cambia el PIN de userID. Solo un manager o el propio usuario.
func (uc *UserUseCase) SetPin(ctx context.Context, actor lifecycle.Actor, userID, pin string) error {
	if actor.Role != entity.RoleManager && actor.ID != userID {
		return fmt.Errorf("%w: solo un manager o el propio usuario cambia el PIN", domain.ErrForbidden)
	}
	if err := uc.pins.SetPin(ctx, userID, pin); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", userID).Str("actor_id", actor.ID).Msg("PIN actualizado")
	return nil
}

// ChangeRole cambia el rol. Los tokens vigentes conservan el rol anterior hasta el próximo refresh.
func (uc *UserUseCase) ChangeRole(ctx context.Context, userID, role string) (*dto.UserResponse, error) {
	r, err := entity.ParseRole(strings.TrimSpace(role))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	user, err := uc.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = r
	user.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", userID).Str("role", string(r)).Msg("rol actualizado")
	return entityToUserResponse(user), nil
}

// Deactivate baja lógica: el usuario deja de autenticarse y de operar trabajos.
func (uc *UserUseCase) Deactivate(ctx context.Context, userID string) error {
	user, err := uc.load(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}
	user.IsActive = false
	user.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, user); err != nil {
		return err
	}
	uc.log.Info().Str("user_id", userID).Msg("usuario desactivado")
	return nil
}

// GetByID obtiene un usuario por ID.
func (uc *UserUseCase) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return entityToUserResponse(user), nil
}

// List lista paginada de usuarios.
func (uc *UserUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.UserListResponse, error) {
	page.DefaultPage()
	users, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, *entityToUserResponse(u))
	}
	return &dto.UserListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(items)},
	}, nil
}

// IsActive indica si el usuario existe y sigue activo.
func (uc *UserUseCase) IsActive(ctx context.Context, userID string) (bool, error) {
	user, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user != nil && user.IsActive, nil
}

func (uc *UserUseCase) load(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func entityToUserResponse(u *entity.User) *dto.UserResponse {
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
