package usecase

import (
	"context"

	"github.com/jhoicas/recon-api/internal/domain/repository"
)

// JobTxRunner ejecuta fn dentro de una transacción, con el repositorio de trabajos atado a ella.
// Si fn devuelve error no se persiste nada.
type JobTxRunner interface {
	RunJob(ctx context.Context, fn func(jobs repository.JobRepository) error) error
}

// PinHasher custodia de PINs usada por el alta y el cambio de PIN.
// ReservePin verifica unicidad, hashea y llama a persist bajo un mismo bloqueo.
type PinHasher interface {
	ReservePin(ctx context.Context, pin, excludeUserID string, persist func(hash string) error) error
	SetPin(ctx context.Context, userID, pin string) error
}
