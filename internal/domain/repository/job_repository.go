package repository

import (
	"context"

	"github.com/jhoicas/recon-api/internal/domain/entity"
)

// JobRepository define el puerto de persistencia para Job (DIP).
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, id string) (*entity.Job, error)
	// GetForUpdate obtiene el trabajo y lo bloquea hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Job, error)
	// FindOpenByVIN devuelve el trabajo In Progress o Paused del VIN, si existe.
	FindOpenByVIN(ctx context.Context, vin string) (*entity.Job, error)
	// List filtra por estado; status vacío = todos.
	List(ctx context.Context, status entity.JobStatus, limit, offset int) ([]*entity.Job, error)
	// Update persiste solo si job.Version coincide con la versión almacenada
	// y la incrementa; si no, devuelve domain.ErrStaleVersion.
	Update(ctx context.Context, job *entity.Job) error
}
