package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/recon-api/pkg/config"
)

func TestPoolConfigFor_DSNPorPartes(t *testing.T) {
	pc, err := poolConfigFor(config.DBConfig{
		Host:     "db.local",
		Port:     5433,
		User:     "recon",
		Password: "p@ss/word",
		DBName:   "recon",
		SSLMode:  "disable",
		MaxConns: 4,
		MinConns: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "db.local", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "p@ss/word", pc.ConnConfig.Password, "la contraseña viaja codificada en el DSN")
	assert.Equal(t, int32(4), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, "recon-api", pc.ConnConfig.RuntimeParams["application_name"])
	assert.NotNil(t, pc.AfterConnect)
}

func TestPoolConfigFor_DatabaseURLTienePrioridad(t *testing.T) {
	pc, err := poolConfigFor(config.DBConfig{
		DatabaseURL: "postgres://u:p@other-host:6543/otra?sslmode=disable",
		Host:        "ignorado",
		Port:        5432,
	})
	require.NoError(t, err)
	assert.Equal(t, "other-host", pc.ConnConfig.Host)
	assert.Equal(t, "otra", pc.ConnConfig.Database)
}

// MinConns mayor que MaxConns se ignora en lugar de fallar al crear el pool.
func TestPoolConfigFor_MinConnsFueraDeRango(t *testing.T) {
	pc, err := poolConfigFor(config.DBConfig{Host: "h", Port: 5432, DBName: "d", SSLMode: "disable", MaxConns: 2, MinConns: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(2), pc.MaxConns)
	assert.Equal(t, int32(0), pc.MinConns)
}

func TestPoolConfigFor_DSNInvalido(t *testing.T) {
	_, err := poolConfigFor(config.DBConfig{DatabaseURL: "postgres://u:p@host:notaport/db"})
	assert.Error(t, err)
}
