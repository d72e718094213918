package dto

// LoginRequest PIN obligatorio; identifier (número de empleado, username o uid) opcional.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Pin        string `json:"pin" validate:"required"`
}

// LoginResponse identidad y par de tokens. Las vigencias van en segundos.
type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	AccessTTL    int64        `json:"access_ttl"`
	RefreshTTL   int64        `json:"refresh_ttl"`
}

// RefreshRequest entrada de /auth/refresh y /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPairResponse nuevo par de tokens tras un refresh.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessTTL    int64  `json:"access_ttl"`
	RefreshTTL   int64  `json:"refresh_ttl"`
}
