package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/recon-api/internal/application/usecase"
	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

const jobColumns = `id, vin, stock_number, vehicle_description, service_type, status,
	assigned_technician_ids, active_technicians, start_time, paused_at, pause_reason,
	pause_duration_minutes, end_time, completed_at, duration_minutes, qc_required,
	qc_completed_by, qc_completed_at, qc_notes, qc_employee_number, qc_history,
	cancelled_at, cancelled_by, created_by, version, created_at, updated_at`

// JobRepo implementación de JobRepository sobre PostgreSQL (usable con pool o tx).
type JobRepo struct {
	q Querier
}

// NewJobRepository construye el adaptador de trabajos. Pasar pool o tx (Querier).
func NewJobRepository(q Querier) *JobRepo {
	return &JobRepo{q: q}
}

// Create inserta el trabajo con versión 1.
func (r *JobRepo) Create(ctx context.Context, job *entity.Job) error {
	job.Version = 1
	query := `
		INSERT INTO jobs (` + jobColumns + `, labor_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`
	args := append(jobArgs(job), job.Version, job.CreatedAt, job.UpdatedAt, laborHours(job))
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID obtiene un trabajo por ID; (nil, nil) si no existe.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*entity.Job, error) {
	return r.getOne(ctx, "get job", `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

// GetForUpdate obtiene el trabajo y bloquea la fila (SELECT FOR UPDATE). Usar dentro de TxRunner.
func (r *JobRepo) GetForUpdate(ctx context.Context, id string) (*entity.Job, error) {
	return r.getOne(ctx, "get job for update", `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id)
}

// FindOpenByVIN trabajo In Progress o Paused más reciente del VIN, bloqueado para update.
func (r *JobRepo) FindOpenByVIN(ctx context.Context, vin string) (*entity.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE vin = $1 AND status IN ('In Progress', 'Paused')
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`
	return r.getOne(ctx, "find open job by vin", query, vin)
}

// List filtra por estado (vacío = todos), más recientes primero.
func (r *JobRepo) List(ctx context.Context, status entity.JobStatus, limit, offset int) ([]*entity.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []*entity.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs scan: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}

// Update escribe solo si la versión almacenada coincide con job.Version y la incrementa.
func (r *JobRepo) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE jobs SET vin = $2, stock_number = $3, vehicle_description = $4, service_type = $5,
			status = $6, assigned_technician_ids = $7, active_technicians = $8, start_time = $9,
			paused_at = $10, pause_reason = $11, pause_duration_minutes = $12, end_time = $13,
			completed_at = $14, duration_minutes = $15, qc_required = $16, qc_completed_by = $17,
			qc_completed_at = $18, qc_notes = $19, qc_employee_number = $20, qc_history = $21,
			cancelled_at = $22, cancelled_by = $23, created_by = $24,
			updated_at = $26, labor_hours = $27, version = version + 1
		WHERE id = $1 AND version = $25`
	args := append(jobArgs(job), job.Version, job.UpdatedAt, laborHours(job))
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, job.ID).Scan(&exists); err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if !exists {
			return domain.ErrJobNotFound
		}
		return domain.ErrStaleVersion
	}
	job.Version++
	return nil
}

func (r *JobRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.Job, error) {
	j, err := scanJob(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

// jobArgs parámetros $1..$24 en el orden de jobColumns (sin version ni timestamps de fila).
func jobArgs(j *entity.Job) []any {
	sessions := j.ActiveTechnicians
	if sessions == nil {
		sessions = []entity.TechnicianSession{}
	}
	history := j.QCHistory
	if history == nil {
		history = []entity.QCReview{}
	}
	return []any{
		j.ID, j.VIN, j.StockNumber, j.VehicleDescription, j.ServiceType, string(j.Status),
		nonNilStrings(j.AssignedTechnicianIDs), sessions, j.StartTime, j.PausedAt, j.PauseReason,
		j.PauseDurationMinutes, j.EndTime, j.CompletedAt, j.DurationMinutes, j.QCRequired,
		j.QCCompletedBy, j.QCCompletedAt, j.QCNotes, j.QCEmployeeNumber, history,
		j.CancelledAt, j.CancelledBy, j.CreatedBy,
	}
}

// laborHours horas trabajadas persistidas para consultas externas (NUMERIC(10,2)).
func laborHours(j *entity.Job) decimal.Decimal {
	return usecase.DurationHours(j.DurationMinutes)
}

func scanJob(row scanner) (*entity.Job, error) {
	var j entity.Job
	var status string
	err := row.Scan(
		&j.ID, &j.VIN, &j.StockNumber, &j.VehicleDescription, &j.ServiceType, &status,
		&j.AssignedTechnicianIDs, &j.ActiveTechnicians, &j.StartTime, &j.PausedAt, &j.PauseReason,
		&j.PauseDurationMinutes, &j.EndTime, &j.CompletedAt, &j.DurationMinutes, &j.QCRequired,
		&j.QCCompletedBy, &j.QCCompletedAt, &j.QCNotes, &j.QCEmployeeNumber, &j.QCHistory,
		&j.CancelledAt, &j.CancelledBy, &j.CreatedBy, &j.Version, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Status = entity.JobStatus(status)
	if len(j.AssignedTechnicianIDs) == 0 {
		j.AssignedTechnicianIDs = nil
	}
	if len(j.ActiveTechnicians) == 0 {
		j.ActiveTechnicians = nil
	}
	if len(j.QCHistory) == 0 {
		j.QCHistory = nil
	}
	return &j, nil
}
