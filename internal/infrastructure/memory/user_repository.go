// Package memory implementa los puertos de persistencia en memoria.
// Seguro para acceso concurrente; pensado para desarrollo local y tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo usuarios en un mapa protegido por RWMutex. Devuelve copias.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

// NewUserRepository construye el repositorio vacío.
func NewUserRepository() *UserRepo {
	return &UserRepo{users: make(map[string]*entity.User)}
}

// Create persiste un nuevo usuario; número de empleado, username y uid externo son únicos.
func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists {
		return domain.ErrDuplicate
	}
	if r.collides(user) {
		return domain.ErrDuplicate
	}
	r.users[user.ID] = user.Clone()
	return nil
}

// GetByID obtiene un usuario por ID; (nil, nil) si no existe.
func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[id].Clone(), nil
}

// FindByIdentifier compara contra número de empleado, username y uid externo normalizados.
func (r *UserRepo) FindByIdentifier(_ context.Context, identifier string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.sorted() {
		for _, key := range identifiers(u) {
			if key == identifier {
				return u.Clone(), nil
			}
		}
	}
	return nil, nil
}

// ListActiveWithPin usuarios activos con hash de PIN, en orden de alta.
func (r *UserRepo) ListActiveWithPin(_ context.Context) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.sorted() {
		if u.IsActive && u.HasPin() {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

// List lista paginada en orden de alta.
func (r *UserRepo) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sorted()
	out := make([]*entity.User, 0, limit)
	for _, u := range page(all, limit, offset) {
		out = append(out, u.Clone())
	}
	return out, nil
}

// Update reemplaza el usuario almacenado.
func (r *UserRepo) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if r.collides(user) {
		return domain.ErrDuplicate
	}
	r.users[user.ID] = user.Clone()
	return nil
}

// TouchLastLogin registra el último login.
func (r *UserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	return nil
}

// collides indica si otro usuario ya usa alguno de los identificadores de user.
func (r *UserRepo) collides(user *entity.User) bool {
	mine := identifiers(user)
	if len(mine) == 0 {
		return false
	}
	for id, other := range r.users {
		if id == user.ID {
			continue
		}
		for _, theirs := range identifiers(other) {
			for _, key := range mine {
				if key == theirs {
					return true
				}
			}
		}
	}
	return false
}

func (r *UserRepo) sorted() []*entity.User {
	all := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, k int) bool {
		if !all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].CreatedAt.Before(all[k].CreatedAt)
		}
		return all[i].ID < all[k].ID
	})
	return all
}

func identifiers(u *entity.User) []string {
	emp, username, uid := u.IdentifierKeys()
	out := make([]string, 0, 3)
	for _, v := range []string{emp, username, uid} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
