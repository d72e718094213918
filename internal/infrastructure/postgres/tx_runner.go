package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/recon-api/internal/application/usecase"
	"github.com/jhoicas/recon-api/internal/domain/repository"
)

var _ usecase.JobTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunJob inicia una transacción, ejecuta fn con el repositorio de trabajos atado a la tx
// y hace Commit o Rollback. Los SELECT ... FOR UPDATE de fn se liberan al terminar.
func (r *TxRunner) RunJob(ctx context.Context, fn func(jobs repository.JobRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewJobRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
