package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo trabajos en memoria con escritura optimista por versión.
type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*entity.Job
}

// NewJobRepository construye el repositorio vacío.
func NewJobRepository() *JobRepo {
	return &JobRepo{jobs: make(map[string]*entity.Job)}
}

// Create persiste un trabajo nuevo con versión 1.
func (r *JobRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return domain.ErrDuplicate
	}
	job.Version = 1
	r.jobs[job.ID] = job.Clone()
	return nil
}

// GetByID obtiene una copia del trabajo; (nil, nil) si no existe.
func (r *JobRepo) GetByID(_ context.Context, id string) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id].Clone(), nil
}

// GetForUpdate en memoria equivale a GetByID; la exclusión la da TxRunner.
func (r *JobRepo) GetForUpdate(ctx context.Context, id string) (*entity.Job, error) {
	return r.GetByID(ctx, id)
}

// FindOpenByVIN trabajo In Progress o Paused más reciente del VIN.
func (r *JobRepo) FindOpenByVIN(_ context.Context, vin string) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *entity.Job
	for _, j := range r.jobs {
		if j.VIN != vin {
			continue
		}
		if j.Status != entity.JobStatusInProgress && j.Status != entity.JobStatusPaused {
			continue
		}
		if found == nil || j.CreatedAt.After(found.CreatedAt) {
			found = j
		}
	}
	return found.Clone(), nil
}

// List filtra por estado (vacío = todos), más recientes primero.
func (r *JobRepo) List(_ context.Context, status entity.JobStatus, limit, offset int) ([]*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if status != "" && j.Status != status {
			continue
		}
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool {
		if !all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].CreatedAt.After(all[k].CreatedAt)
		}
		return all[i].ID < all[k].ID
	})
	out := make([]*entity.Job, 0, limit)
	for _, j := range page(all, limit, offset) {
		out = append(out, j.Clone())
	}
	return out, nil
}

// Update persiste si la versión coincide e incrementa job.Version.
func (r *JobRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if stored.Version != job.Version {
		return domain.ErrStaleVersion
	}
	job.Version++
	r.jobs[job.ID] = job.Clone()
	return nil
}
