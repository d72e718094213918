package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Tipos de token. Un refresh token nunca es aceptado como access token y viceversa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrExpired el token tenía firma válida pero ya venció.
	ErrExpired = errors.New("jwt: token expirado")
	// ErrInvalid firma, formato, tipo o claims incorrectos.
	ErrInvalid = errors.New("jwt: token inválido")
)

// Claims incluye los claims estándar JWT más los campos propios de la aplicación.
// Role solo viaja en access tokens; el refresh token lleva únicamente el subject.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"` // "manager" | "detailer" | "salesperson"
	Type string `json:"typ"`
}

// GenerateAccess firma un access token de vida corta con subject y role.
func GenerateAccess(secret, issuer, subject, role string, ttl time.Duration) (string, *Claims, error) {
	return generate(secret, issuer, subject, role, TypeAccess, ttl)
}

// GenerateRefresh firma un refresh token de vida larga que solo identifica al usuario.
func GenerateRefresh(secret, issuer, subject string, ttl time.Duration) (string, *Claims, error) {
	return generate(secret, issuer, subject, "", TypeRefresh, ttl)
}

func generate(secret, issuer, subject, role, typ string, ttl time.Duration) (string, *Claims, error) {
	if secret == "" {
		return "", nil, fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
		Type: typ,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, fmt.Errorf("jwt: firmar token: %w", err)
	}
	return signed, claims, nil
}

// ParseAccess valida firma, vigencia y tipo de un access token.
func ParseAccess(secret, tokenString string) (*Claims, error) {
	return parse(secret, tokenString, TypeAccess)
}

// ParseRefresh valida firma, vigencia y tipo de un refresh token.
func ParseRefresh(secret, tokenString string) (*Claims, error) {
	return parse(secret, tokenString, TypeRefresh)
}

func parse(secret, tokenString, typ string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
