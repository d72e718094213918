package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/repository"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// ValidatePin exige 4 a 8 dígitos.
func ValidatePin(pin string) error {
	if !pinPattern.MatchString(pin) {
		return fmt.Errorf("%w: el PIN debe tener entre 4 y 8 dígitos", domain.ErrInvalidInput)
	}
	return nil
}

// NormalizeIdentifier recorta espacios y aplica case folding (Unicode) al identificador.
func NormalizeIdentifier(identifier string) string {
	return entity.FoldIdentifier(identifier)
}

// CredentialStore resuelve PIN/identificador a una identidad y custodia los hashes de PIN.
//
// El login por PIN compara contra el hash de cada usuario activo (bcrypt no permite
// indexar): costo lineal en el tamaño de la plantilla, aceptable para decenas o
// pocos cientos de usuarios.
type CredentialStore struct {
	users  repository.UserRepository
	locker repository.PinLocker
	cost   int
	now    func() time.Time
}

// NewCredentialStore construye el almacén; cost<=0 usa bcrypt.DefaultCost.
// locker nil serializa las asignaciones de PIN solo dentro del proceso.
func NewCredentialStore(users repository.UserRepository, locker repository.PinLocker, cost int) *CredentialStore {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if locker == nil {
		locker = &processPinLocker{}
	}
	return &CredentialStore{users: users, locker: locker, cost: cost, now: time.Now}
}

type processPinLocker struct {
	mu sync.Mutex
}

func (l *processPinLocker) LockPins(context.Context) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// HashPin valida y hashea un PIN.
func (s *CredentialStore) HashPin(pin string) (string, error) {
	if err := ValidatePin(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// ResolveByPin devuelve el primer usuario activo cuyo hash coincide con el PIN y registra su último login.
func (s *CredentialStore) ResolveByPin(ctx context.Context, pin string) (*entity.User, error) {
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}
	user, err := s.matchPin(ctx, pin, "")
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.touch(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResolveByIdentifier busca por número de empleado, username o uid externo (sin distinguir mayúsculas).
func (s *CredentialStore) ResolveByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	user, err := s.findActive(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if err := s.touch(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate con identificador verifica el PIN solo contra ese usuario; sin él, barre por PIN.
func (s *CredentialStore) Authenticate(ctx context.Context, identifier, pin string) (*entity.User, error) {
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}
	if strings.TrimSpace(identifier) == "" {
		return s.ResolveByPin(ctx, pin)
	}
	user, err := s.findActive(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !user.HasPin() || bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.touch(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IsPinInUse indica si otro usuario activo (distinto de excludeUserID) ya usa el PIN.
func (s *CredentialStore) IsPinInUse(ctx context.Context, pin, excludeUserID string) (bool, error) {
	user, err := s.matchPin(ctx, pin, excludeUserID)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// ReservePin asigna un PIN de forma exclusiva: con el bloqueo de PINs tomado verifica que
// ningún otro usuario activo (distinto de excludeUserID) lo use, lo hashea y llama a persist.
// Conflict (ErrPinInUse) si ya está en uso; persist no se llama en ese caso.
func (s *CredentialStore) ReservePin(ctx context.Context, pin, excludeUserID string, persist func(hash string) error) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}
	unlock, err := s.locker.LockPins(ctx)
	if err != nil {
		return fmt.Errorf("bloqueo de PINs: %w", err)
	}
	defer unlock()

	inUse, err := s.IsPinInUse(ctx, pin, excludeUserID)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrPinInUse
	}
	hash, err := s.HashPin(pin)
	if err != nil {
		return err
	}
	return persist(hash)
}

// SetPin reemplaza el hash del PIN; Conflict si otro usuario activo ya lo usa.
func (s *CredentialStore) SetPin(ctx context.Context, userID, pin string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	return s.ReservePin(ctx, pin, userID, func(hash string) error {
		user, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		user.PinHash = hash
		user.UpdatedAt = s.now()
		return s.users.Update(ctx, user)
	})
}

func (s *CredentialStore) load(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *CredentialStore) matchPin(ctx context.Context, pin, excludeUserID string) (*entity.User, error) {
	users, err := s.users.ListActiveWithPin(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar usuarios activos: %w", err)
	}
	for _, u := range users {
		if u.ID == excludeUserID || !u.HasPin() {
			continue
		}
		err := bcrypt.CompareHashAndPassword([]byte(u.PinHash), []byte(pin))
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("comparar hash de %s: %w", u.ID, err)
		}
	}
	return nil, nil
}

func (s *CredentialStore) findActive(ctx context.Context, identifier string) (*entity.User, error) {
	normalized := NormalizeIdentifier(identifier)
	if normalized == "" {
		return nil, fmt.Errorf("%w: identificador vacío", domain.ErrInvalidInput)
	}
	user, err := s.users.FindByIdentifier(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *CredentialStore) touch(ctx context.Context, user *entity.User) error {
	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return err
	}
	user.LastLogin = &now
	return nil
}
