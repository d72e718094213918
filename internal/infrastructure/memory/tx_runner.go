package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/recon-api/internal/domain/repository"
)

// TxRunner serializa las lecturas-modificación-escritura de trabajos con un mutex.
// No hay rollback: los use cases solo escriben con Update al final del callback.
type TxRunner struct {
	mu   sync.Mutex
	jobs *JobRepo
}

// NewTxRunner construye el runner sobre el repositorio de trabajos.
func NewTxRunner(jobs *JobRepo) *TxRunner {
	return &TxRunner{jobs: jobs}
}

// RunJob ejecuta fn en exclusión mutua con las demás transacciones de trabajos.
func (r *TxRunner) RunJob(ctx context.Context, fn func(jobs repository.JobRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.jobs)
}
