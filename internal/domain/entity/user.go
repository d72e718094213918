package entity

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Role rol cerrado de un usuario del taller.
type Role string

// Roles válidos para User.
const (
	RoleManager     Role = "manager"
	RoleDetailer    Role = "detailer"
	RoleSalesperson Role = "salesperson"
)

// ParseRole convierte un string al enum Role; cualquier otro valor es error.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleManager, RoleDetailer, RoleSalesperson:
		return Role(s), nil
	}
	return "", fmt.Errorf("rol desconocido %q", s)
}

func (r Role) String() string { return string(r) }

// User credencial + rol. El PIN nunca se guarda, solo su hash bcrypt.
type User struct {
	ID             string
	DisplayName    string
	Username       string
	EmployeeNumber string
	ExternalUID    string
	PhoneNumber    string
	Role           Role
	PinHash        string
	IsActive       bool
	LastLogin      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FoldIdentifier clave de comparación de un identificador: trim + case folding Unicode.
// Memoria y PostgreSQL comparan contra esta misma clave.
func FoldIdentifier(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// IdentifierKeys claves plegadas de número de empleado, username y uid externo (vacías si el campo falta).
func (u *User) IdentifierKeys() (employeeNumber, username, externalUID string) {
	return FoldIdentifier(u.EmployeeNumber), FoldIdentifier(u.Username), FoldIdentifier(u.ExternalUID)
}

// HasPin indica si el usuario puede autenticarse por PIN.
func (u *User) HasPin() bool {
	return u.PinHash != ""
}

// Clone copia el usuario incluyendo LastLogin.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.LastLogin = cloneTime(u.LastLogin)
	return &c
}
