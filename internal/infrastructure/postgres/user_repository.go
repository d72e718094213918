package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const userColumns = `id, display_name, username, employee_number, external_uid, phone_number,
	role, pin_hash, is_active, last_login, created_at, updated_at`

const userKeyColumns = `employee_number_key, username_key, external_uid_key`

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios. Pasar pool o tx (Querier).
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (` + userColumns + `, ` + userKeyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	empKey, usernameKey, uidKey := user.IdentifierKeys()
	_, err := r.q.Exec(ctx, query,
		user.ID, user.DisplayName, user.Username, user.EmployeeNumber, user.ExternalUID, user.PhoneNumber,
		string(user.Role), user.PinHash, user.IsActive, user.LastLogin, user.CreatedAt, user.UpdatedAt,
		empKey, usernameKey, uidKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// FindByIdentifier busca por las claves plegadas de número de empleado, username o uid externo.
func (r *UserRepo) FindByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE $1 <> ''
		  AND (employee_number_key = $1 OR username_key = $1 OR external_uid_key = $1)
		ORDER BY created_at
		LIMIT 1`
	u, err := scanUser(r.q.QueryRow(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by identifier: %w", err)
	}
	return u, nil
}

// ListActiveWithPin usuarios activos con PIN, en orden de alta.
func (r *UserRepo) ListActiveWithPin(ctx context.Context) ([]*entity.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE is_active AND pin_hash <> ''
		ORDER BY created_at, id`
	return r.list(ctx, "list active users with pin", query)
}

// List lista paginada en orden de alta.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`
	return r.list(ctx, "list users", query, limit, offset)
}

// Update actualiza los datos del usuario y sus claves de identificador (no toca last_login ni created_at).
func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET display_name = $2, username = $3, employee_number = $4, external_uid = $5,
			phone_number = $6, role = $7, pin_hash = $8, is_active = $9, updated_at = $10,
			employee_number_key = $11, username_key = $12, external_uid_key = $13
		WHERE id = $1`
	empKey, usernameKey, uidKey := user.IdentifierKeys()
	tag, err := r.q.Exec(ctx, query,
		user.ID, user.DisplayName, user.Username, user.EmployeeNumber, user.ExternalUID,
		user.PhoneNumber, string(user.Role), user.PinHash, user.IsActive, user.UpdatedAt,
		empKey, usernameKey, uidKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// TouchLastLogin registra el último login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.User, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var out []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanUser(row scanner) (*entity.User, error) {
	var u entity.User
	var role string
	err := row.Scan(
		&u.ID, &u.DisplayName, &u.Username, &u.EmployeeNumber, &u.ExternalUID, &u.PhoneNumber,
		&role, &u.PinHash, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = entity.Role(role)
	return &u, nil
}
