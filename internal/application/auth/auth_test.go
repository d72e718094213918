package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/recon-api/internal/application/auth"
	"github.com/jhoicas/recon-api/internal/application/dto"
	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/infrastructure/memory"
	"github.com/jhoicas/recon-api/pkg/jwt"
	"github.com/jhoicas/recon-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var jwtCfg = auth.JWTConfig{
	AccessSecret:  "access-secret-test",
	RefreshSecret: "refresh-secret-test",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    24 * time.Hour,
	Issuer:        "recon-api-test",
}

type fixture struct {
	users    *memory.UserRepo
	store    *auth.CredentialStore
	issuer   *auth.TokenIssuer
	uc       *auth.AuthUseCase
	denylist *memory.TokenDenylist
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUserRepository()
	denylist := memory.NewTokenDenylist()
	store := auth.NewCredentialStore(users, nil, bcrypt.MinCost)
	issuer := auth.NewTokenIssuer(jwtCfg, users, denylist)
	return &fixture{
		users:    users,
		store:    store,
		issuer:   issuer,
		uc:       auth.NewAuthUseCase(store, issuer, logger.Nop()),
		denylist: denylist,
	}
}

func (f *fixture) seed(t *testing.T, id string, role entity.Role, employee, pin string, active bool) *entity.User {
	t.Helper()
	hash, err := f.store.HashPin(pin)
	require.NoError(t, err)
	u := &entity.User{
		ID:             id,
		DisplayName:    "Usuario " + id,
		EmployeeNumber: employee,
		Role:           role,
		PinHash:        hash,
		IsActive:       active,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// ──────────────────────────────────────────────────────────────────────────────
// Credential Store
// ──────────────────────────────────────────────────────────────────────────────

func TestValidatePin(t *testing.T) {
	for _, pin := range []string{"1234", "12345678"} {
		assert.NoError(t, auth.ValidatePin(pin), pin)
	}
	for _, pin := range []string{"", "123", "123456789", "12a4", " 1234"} {
		assert.ErrorIs(t, auth.ValidatePin(pin), domain.ErrInvalidInput, pin)
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "e-100", auth.NormalizeIdentifier("  E-100 "))
	assert.Equal(t, auth.NormalizeIdentifier("STRASSE"), auth.NormalizeIdentifier("strasse"))
	assert.Equal(t, "strasse", auth.NormalizeIdentifier("Straße"))
	assert.Equal(t, entity.FoldIdentifier("Straße"), auth.NormalizeIdentifier(" STRASSE "))
}

func TestAuthenticate_IdentificadorConCaseFolding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "d1", entity.RoleDetailer, "Straße-7", "4321", true)

	user, err := f.store.Authenticate(ctx, "STRASSE-7", "4321")
	require.NoError(t, err)
	assert.Equal(t, "d1", user.ID)

	user, err = f.store.ResolveByIdentifier(ctx, "strasse-7")
	require.NoError(t, err)
	assert.Equal(t, "d1", user.ID)
}

func TestResolveByPin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "d1", entity.RoleDetailer, "E-100", "4321", true)

	user, err := f.store.ResolveByPin(ctx, "4321")
	require.NoError(t, err)
	assert.Equal(t, "d1", user.ID)
	require.NotNil(t, user.LastLogin)

	stored, _ := f.users.GetByID(ctx, "d1")
	require.NotNil(t, stored.LastLogin, "el login registra lastLogin")

	_, err = f.store.ResolveByPin(ctx, "9999")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.store.ResolveByPin(ctx, "12")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResolveByPin_UsuarioInactivo(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", entity.RoleDetailer, "E-100", "4321", false)

	_, err := f.store.ResolveByPin(context.Background(), "4321")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticate_PorIdentificadorSinMayusculas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "d1", entity.RoleDetailer, "E-100", "4321", true)

	user, err := f.store.Authenticate(ctx, " e-100 ", "4321")
	require.NoError(t, err)
	assert.Equal(t, "d1", user.ID)

	_, err = f.store.Authenticate(ctx, "E-100", "1111")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.store.Authenticate(ctx, "E-999", "4321")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSetPin_Conflicto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "d1", entity.RoleDetailer, "E-100", "4321", true)
	f.seed(t, "d2", entity.RoleDetailer, "E-101", "5555", true)

	err := f.store.SetPin(ctx, "d2", "4321")
	assert.ErrorIs(t, err, domain.ErrPinInUse)

	// Repetir el propio PIN no es conflicto.
	require.NoError(t, f.store.SetPin(ctx, "d2", "5555"))

	require.NoError(t, f.store.SetPin(ctx, "d2", "7777"))
	user, err := f.store.ResolveByPin(ctx, "7777")
	require.NoError(t, err)
	assert.Equal(t, "d2", user.ID)

	assert.ErrorIs(t, f.store.SetPin(ctx, "nadie", "8888"), domain.ErrUserNotFound)
}

func TestSetPin_PinDeUsuarioInactivoSeReutiliza(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "viejo", entity.RoleDetailer, "E-100", "4321", false)
	f.seed(t, "d2", entity.RoleDetailer, "E-101", "5555", true)

	require.NoError(t, f.store.SetPin(ctx, "d2", "4321"))
}

func TestSetPin_ConcurrenteMismoPinSoloUnoLoObtiene(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		users := memory.NewUserRepository()
		// Costo real: el hash tarda lo suficiente para que ambas escrituras se solapen.
		store := auth.NewCredentialStore(users, nil, bcrypt.DefaultCost)
		for _, id := range []string{"a", "b"} {
			require.NoError(t, users.Create(ctx, &entity.User{
				ID: id, DisplayName: id, Role: entity.RoleDetailer, IsActive: true, CreatedAt: time.Now(),
			}))
		}

		start := make(chan struct{})
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for k, id := range []string{"a", "b"} {
			wg.Add(1)
			go func(k int, id string) {
				defer wg.Done()
				<-start
				errs[k] = store.SetPin(ctx, id, "9999")
			}(k, id)
		}
		close(start)
		wg.Wait()

		var ok, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrPinInUse):
				conflicts++
			default:
				t.Fatalf("error inesperado: %v", err)
			}
		}
		assert.Equal(t, 1, ok, "iteración %d", i)
		assert.Equal(t, 1, conflicts, "iteración %d", i)

		active, err := users.ListActiveWithPin(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 1, "un solo usuario activo queda con el PIN")
	}
}

// countingLocker registra cuántas veces se tomó el bloqueo y si quedó liberado.
type countingLocker struct {
	mu     sync.Mutex
	locks  int
	held   bool
	failed error
}

func (l *countingLocker) LockPins(context.Context) (func(), error) {
	if l.failed != nil {
		return nil, l.failed
	}
	l.mu.Lock()
	l.locks++
	l.held = true
	return func() {
		l.held = false
		l.mu.Unlock()
	}, nil
}

func TestReservePin_UsaElBloqueoYNoPersisteEnConflicto(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	locker := &countingLocker{}
	store := auth.NewCredentialStore(users, locker, bcrypt.MinCost)

	hash, err := store.HashPin("4321")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, &entity.User{
		ID: "d1", DisplayName: "d1", Role: entity.RoleDetailer, PinHash: hash, IsActive: true, CreatedAt: time.Now(),
	}))

	var persisted bool
	err = store.ReservePin(ctx, "4321", "", func(string) error {
		persisted = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrPinInUse)
	assert.False(t, persisted)

	err = store.ReservePin(ctx, "5555", "", func(h string) error {
		assert.True(t, locker.held, "persist corre con el bloqueo tomado")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("5555")))
		persisted = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, persisted)
	assert.Equal(t, 2, locker.locks)
	assert.False(t, locker.held)

	// PIN mal formado: se rechaza sin tomar el bloqueo.
	assert.ErrorIs(t, store.ReservePin(ctx, "12", "", func(string) error { return nil }), domain.ErrInvalidInput)
	assert.Equal(t, 2, locker.locks)
}

func TestReservePin_ErrorDelBloqueo(t *testing.T) {
	locker := &countingLocker{failed: errors.New("connection reset")}
	store := auth.NewCredentialStore(memory.NewUserRepository(), locker, bcrypt.MinCost)

	err := store.ReservePin(context.Background(), "4321", "", func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

// ──────────────────────────────────────────────────────────────────────────────
// Token Issuer
// ──────────────────────────────────────────────────────────────────────────────

func TestVerifyAccess_RoundTrip(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "s1", entity.RoleSalesperson, "E-200", "2468", true)

	tok, err := f.issuer.IssueAccessToken(u)
	require.NoError(t, err)

	claims, err := f.issuer.VerifyAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.Subject)
	assert.Equal(t, entity.RoleSalesperson, claims.Role)
}

func TestVerifyAccess_Expirado(t *testing.T) {
	tok, _, err := jwt.GenerateAccess(jwtCfg.AccessSecret, jwtCfg.Issuer, "d1", "detailer", -time.Minute)
	require.NoError(t, err)

	_, err = auth.VerifyAccessToken(jwtCfg.AccessSecret, tok)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerifyAccess_RefreshNoSirveComoAccess(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "d1", entity.RoleDetailer, "E-100", "4321", true)

	refresh, err := f.issuer.IssueRefreshToken(u)
	require.NoError(t, err)

	_, err = f.issuer.VerifyAccess(refresh)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyAccess_RolDesconocido(t *testing.T) {
	tok, _, err := jwt.GenerateAccess(jwtCfg.AccessSecret, jwtCfg.Issuer, "x", "admin", time.Minute)
	require.NoError(t, err)

	_, err = auth.VerifyAccessToken(jwtCfg.AccessSecret, tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

// ──────────────────────────────────────────────────────────────────────────────
// Auth use case
// ──────────────────────────────────────────────────────────────────────────────

func TestLogin_DevuelveParYUsuario(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", entity.RoleDetailer, "E-100", "4321", true)

	resp, err := f.uc.Login(context.Background(), dto.LoginRequest{Pin: "4321"})
	require.NoError(t, err)
	assert.Equal(t, "d1", resp.User.ID)
	assert.Equal(t, "detailer", resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(15*60), resp.AccessTTL)
	assert.Equal(t, int64(24*3600), resp.RefreshTTL)
}

func TestLogin_PinMalFormado(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Login(context.Background(), dto.LoginRequest{Pin: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Un cambio de rol aplica en el siguiente refresh aunque el access token anterior siga vigente.
func TestRefresh_RederivaRolVigente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", entity.RoleDetailer, "E-100", "4321", true)

	login, err := f.uc.Login(ctx, dto.LoginRequest{Pin: "4321"})
	require.NoError(t, err)

	u, _ := f.users.GetByID(ctx, "u1")
	u.Role = entity.RoleManager
	require.NoError(t, f.users.Update(ctx, u))

	pair, err := f.uc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)

	claims, err := f.issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleManager, claims.Role)

	old, err := f.issuer.VerifyAccess(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleDetailer, old.Role, "el access token viejo conserva su rol hasta expirar")
}

func TestRefresh_RotacionRevocaElAnterior(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", entity.RoleDetailer, "E-100", "4321", true)

	login, err := f.uc.Login(ctx, dto.LoginRequest{Pin: "4321"})
	require.NoError(t, err)

	_, err = f.uc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)

	_, err = f.uc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_ConcurrenteSoloUnoCanjea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seed(t, "u1", entity.RoleDetailer, "E-100", "4321", true)

	refresh, err := f.issuer.IssueRefreshToken(u)
	require.NoError(t, err)

	const n = 8
	start := make(chan struct{})
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, _, errs[i] = f.issuer.Refresh(ctx, refresh)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	}
	assert.Equal(t, 1, ok, "un refresh token se canjea una sola vez")
}

// lateDenylist simula que otra instancia revocó el jti entre la consulta y la revocación.
type lateDenylist struct{}

func (lateDenylist) Revoke(context.Context, string, time.Time) (bool, error) { return false, nil }
func (lateDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func TestRefresh_RevocacionPerdidaEsTokenInvalido(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "u1", entity.RoleDetailer, "E-100", "4321", true)
	issuer := auth.NewTokenIssuer(jwtCfg, f.users, lateDenylist{})

	refresh, err := issuer.IssueRefreshToken(u)
	require.NoError(t, err)

	_, _, err = issuer.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// Logout con un jti ya revocado sigue siendo idempotente.
	assert.NoError(t, issuer.Revoke(context.Background(), refresh))
}

func TestRefresh_UsuarioDesactivado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", entity.RoleDetailer, "E-100", "4321", true)

	login, err := f.uc.Login(ctx, dto.LoginRequest{Pin: "4321"})
	require.NoError(t, err)

	u, _ := f.users.GetByID(ctx, "u1")
	u.IsActive = false
	require.NoError(t, f.users.Update(ctx, u))

	_, err = f.uc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefresh_AccessTokenNoSirve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", entity.RoleDetailer, "E-100", "4321", true)

	login, err := f.uc.Login(ctx, dto.LoginRequest{Pin: "4321"})
	require.NoError(t, err)

	_, err = f.uc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.AccessToken})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestLogout_RevocaRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", entity.RoleManager, "E-300", "1357", true)

	login, err := f.uc.Login(ctx, dto.LoginRequest{Identifier: "E-300", Pin: "1357"})
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken}))

	_, err = f.uc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	assert.ErrorIs(t, f.uc.Logout(ctx, dto.RefreshRequest{}), domain.ErrInvalidInput)
}
