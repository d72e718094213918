package repository

import (
	"context"
	"time"

	"github.com/jhoicas/recon-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
// Las búsquedas devuelven (nil, nil) cuando no hay coincidencia.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// FindByIdentifier busca por número de empleado, username o uid externo.
	// identifier ya viene normalizado (trim + case fold).
	FindByIdentifier(ctx context.Context, identifier string) (*entity.User, error)
	// ListActiveWithPin devuelve los usuarios activos con hash de PIN (login por PIN y unicidad).
	ListActiveWithPin(ctx context.Context) ([]*entity.User, error)
	List(ctx context.Context, limit, offset int) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// PinLocker serializa las asignaciones de PIN: verificación de unicidad, hash y escritura
// corren con el bloqueo tomado. unlock libera y no falla.
type PinLocker interface {
	LockPins(ctx context.Context) (unlock func(), err error)
}
