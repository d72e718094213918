package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/recon-api/internal/application/dto"
	"github.com/jhoicas/recon-api/internal/domain"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/lifecycle"
	"github.com/jhoicas/recon-api/internal/domain/repository"
	"github.com/jhoicas/recon-api/pkg/logger"
)

// JobUseCase operaciones de ciclo de vida sobre trabajos. Cada transición es una
// lectura-modificación-escritura dentro de JobTxRunner: el trabajo se bloquea con
// GetForUpdate y se guarda con Update (versión optimista).
//
// Orden de chequeos: usuario activo, autorización (rol), legalidad (grafo), mutación, persistencia.
type JobUseCase struct {
	tx    JobTxRunner
	jobs  repository.JobRepository
	users repository.UserRepository
	log   *logger.Logger
	now   func() time.Time
}

// JobOption opción de construcción.
type JobOption func(*JobUseCase)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) JobOption {
	return func(uc *JobUseCase) { uc.now = now }
}

// NewJobUseCase construye el caso de uso.
func NewJobUseCase(tx JobTxRunner, jobs repository.JobRepository, users repository.UserRepository, log *logger.Logger, opts ...JobOption) *JobUseCase {
	uc := &JobUseCase{tx: tx, jobs: jobs, users: users, log: log.Component("jobs"), now: time.Now}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

// Create alta de un trabajo en Pending (manager o salesperson).
func (uc *JobUseCase) Create(ctx context.Context, actor lifecycle.Actor, in dto.CreateJobRequest) (*dto.JobResponse, error) {
	actor, err := uc.resolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role != entity.RoleManager && actor.Role != entity.RoleSalesperson {
		return nil, fmt.Errorf("%w: el rol %q no puede crear trabajos", domain.ErrForbidden, actor.Role)
	}
	vin, err := normalizeVIN(in.VIN)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	job := &entity.Job{
		ID:                 uuid.New().String(),
		VIN:                vin,
		StockNumber:        strings.TrimSpace(in.StockNumber),
		VehicleDescription: strings.TrimSpace(in.VehicleDescription),
		ServiceType:        strings.TrimSpace(in.ServiceType),
		Status:             entity.JobStatusPending,
		QCRequired:         in.QCRequired,
		CreatedBy:          actor.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if in.TechnicianID != "" {
		if err := uc.checkTechnician(ctx, in.TechnicianID); err != nil {
			return nil, err
		}
		job.AssignedTechnicianIDs = []string{in.TechnicianID}
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	uc.log.Info().Str("job_id", job.ID).Str("actor_id", actor.ID).Str("vin", vin).Msg("trabajo creado")
	return toJobResponse(job), nil
}

// JoinByVIN el actor se une al trabajo abierto (In Progress o Paused) del VIN; si no hay,
// crea uno directamente en In Progress con el actor como técnico. created indica el segundo caso.
func (uc *JobUseCase) JoinByVIN(ctx context.Context, actor lifecycle.Actor, in dto.JoinJobRequest) (resp *dto.JobResponse, created bool, err error) {
	actor, err = uc.resolveActor(ctx, actor)
	if err != nil {
		return nil, false, err
	}
	if actor.Role != entity.RoleManager && actor.Role != entity.RoleDetailer {
		return nil, false, fmt.Errorf("%w: el rol %q no puede unirse a trabajos", domain.ErrForbidden, actor.Role)
	}
	vin, err := normalizeVIN(in.VIN)
	if err != nil {
		return nil, false, err
	}

	var out *entity.Job
	err = uc.tx.RunJob(ctx, func(jobs repository.JobRepository) error {
		now := uc.now()
		open, err := jobs.FindOpenByVIN(ctx, vin)
		if err != nil {
			return err
		}
		if open != nil {
			if err := lifecycle.Authorize(actor, lifecycle.ActionAddTechnician, open); err != nil {
				return err
			}
			from := open.Status
			if err := lifecycle.AddTechnician(open, actor.ID, now); err != nil {
				return err
			}
			if err := jobs.Update(ctx, open); err != nil {
				return err
			}
			uc.logTransition(open, actor, lifecycle.ActionAddTechnician, from)
			out = open
			return nil
		}

		job := &entity.Job{
			ID:                 uuid.New().String(),
			VIN:                vin,
			StockNumber:        strings.TrimSpace(in.StockNumber),
			VehicleDescription: strings.TrimSpace(in.VehicleDescription),
			ServiceType:        strings.TrimSpace(in.ServiceType),
			Status:             entity.JobStatusPending,
			QCRequired:         in.QCRequired,
			CreatedBy:          actor.ID,
			CreatedAt:          now,
		}
		if err := lifecycle.Start(job, actor, now); err != nil {
			return err
		}
		// Start solo asigna detailers; quien se une por VIN siempre queda como técnico.
		if err := lifecycle.AddTechnician(job, actor.ID, now); err != nil {
			return err
		}
		if err := jobs.Create(ctx, job); err != nil {
			return err
		}
		uc.logTransition(job, actor, lifecycle.ActionStart, entity.JobStatusPending)
		out = job
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return toJobResponse(out), created, nil
}

// Get obtiene un trabajo por ID.
func (uc *JobUseCase) Get(ctx context.Context, id string) (*dto.JobResponse, error) {
	job, err := uc.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return toJobResponse(job), nil
}

// List lista trabajos, opcionalmente filtrados por estado.
func (uc *JobUseCase) List(ctx context.Context, status string, page dto.PageRequest) (*dto.JobListResponse, error) {
	page.DefaultPage()
	var filter entity.JobStatus
	if status != "" {
		s, err := entity.ParseJobStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		filter = s
	}
	jobs, err := uc.jobs.List(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.JobResponse, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, *toJobResponse(j))
	}
	return &dto.JobListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(items)},
	}, nil
}

// Start inicia, reanuda o reabre para retrabajo.
func (uc *JobUseCase) Start(ctx context.Context, actor lifecycle.Actor, jobID string) (*dto.JobResponse, error) {
	return uc.transition(ctx, actor, jobID, lifecycle.ActionStart, func(job *entity.Job, a lifecycle.Actor, now time.Time) error {
		return lifecycle.Start(job, a, now)
	})
}

// Pause pausa un trabajo en curso.
func (uc *JobUseCase) Pause(ctx context.Context, actor lifecycle.Actor, jobID string, in dto.PauseJobRequest) (*dto.JobResponse, error) {
	reason := strings.TrimSpace(in.Reason)
	return uc.transition(ctx, actor, jobID, lifecycle.ActionPause, func(job *entity.Job, _ lifecycle.Actor, now time.Time) error {
		return lifecycle.Pause(job, now, reason)
	})
}

// AddTechnician agrega un técnico activo (no salesperson) al trabajo.
func (uc *JobUseCase) AddTechnician(ctx context.Context, actor lifecycle.Actor, jobID string, in dto.AddTechnicianRequest) (*dto.JobResponse, error) {
	if strings.TrimSpace(in.TechnicianID) == "" {
		return nil, fmt.Errorf("%w: technician_id es requerido", domain.ErrInvalidInput)
	}
	if err := uc.checkTechnician(ctx, in.TechnicianID); err != nil {
		return nil, err
	}
	return uc.transition(ctx, actor, jobID, lifecycle.ActionAddTechnician, func(job *entity.Job, _ lifecycle.Actor, now time.Time) error {
		return lifecycle.AddTechnician(job, in.TechnicianID, now)
	})
}

// Complete cierra el trabajo (Completed o QC Required).
func (uc *JobUseCase) Complete(ctx context.Context, actor lifecycle.Actor, jobID string) (*dto.JobResponse, error) {
	return uc.transition(ctx, actor, jobID, lifecycle.ActionComplete, func(job *entity.Job, _ lifecycle.Actor, now time.Time) error {
		return lifecycle.Complete(job, now)
	})
}

// QCDecision registra la decisión de QC (solo manager o salesperson).
func (uc *JobUseCase) QCDecision(ctx context.Context, actor lifecycle.Actor, jobID string, in dto.QCDecisionRequest) (*dto.JobResponse, error) {
	if in.Passed == nil {
		return nil, fmt.Errorf("%w: passed es requerido", domain.ErrInvalidInput)
	}
	passed := *in.Passed
	notes := strings.TrimSpace(in.Notes)
	return uc.transition(ctx, actor, jobID, lifecycle.ActionQCDecision, func(job *entity.Job, a lifecycle.Actor, now time.Time) error {
		return lifecycle.QCDecision(job, a, passed, notes, now)
	})
}

// Cancel cancela un trabajo no terminal (solo manager).
func (uc *JobUseCase) Cancel(ctx context.Context, actor lifecycle.Actor, jobID string) (*dto.JobResponse, error) {
	return uc.transition(ctx, actor, jobID, lifecycle.ActionCancel, func(job *entity.Job, a lifecycle.Actor, now time.Time) error {
		return lifecycle.Cancel(job, a, now)
	})
}

type applyFunc func(job *entity.Job, actor lifecycle.Actor, now time.Time) error

func (uc *JobUseCase) transition(ctx context.Context, actor lifecycle.Actor, jobID string, action lifecycle.Action, apply applyFunc) (*dto.JobResponse, error) {
	actor, err := uc.resolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	var out *entity.Job
	err = uc.tx.RunJob(ctx, func(jobs repository.JobRepository) error {
		job, err := jobs.GetForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return domain.ErrJobNotFound
		}
		if err := lifecycle.Authorize(actor, action, job); err != nil {
			return err
		}
		from := job.Status
		if err := apply(job, actor, uc.now()); err != nil {
			return err
		}
		if err := jobs.Update(ctx, job); err != nil {
			return err
		}
		uc.logTransition(job, actor, action, from)
		out = job
		return nil
	})
	if err != nil {
		uc.log.Debug().Err(err).Str("job_id", jobID).Str("actor_id", actor.ID).Str("action", string(action)).Msg("transición rechazada")
		return nil, err
	}
	return toJobResponse(out), nil
}

// resolveActor verifica que el usuario siga activo y completa su número de empleado.
// El rol es el del token.
func (uc *JobUseCase) resolveActor(ctx context.Context, actor lifecycle.Actor) (lifecycle.Actor, error) {
	user, err := uc.users.GetByID(ctx, actor.ID)
	if err != nil {
		return actor, err
	}
	if user == nil {
		return actor, domain.ErrTokenInvalid
	}
	if !user.IsActive {
		return actor, domain.ErrUserInactive
	}
	actor.EmployeeNumber = user.EmployeeNumber
	return actor, nil
}

func (uc *JobUseCase) checkTechnician(ctx context.Context, technicianID string) error {
	tech, err := uc.users.GetByID(ctx, technicianID)
	if err != nil {
		return err
	}
	if tech == nil {
		return domain.ErrUserNotFound
	}
	if !tech.IsActive {
		return fmt.Errorf("%w: el técnico %s está inactivo", domain.ErrInvalidInput, technicianID)
	}
	if tech.Role == entity.RoleSalesperson {
		return fmt.Errorf("%w: un salesperson no puede ser técnico", domain.ErrInvalidInput)
	}
	return nil
}

func (uc *JobUseCase) logTransition(job *entity.Job, actor lifecycle.Actor, action lifecycle.Action, from entity.JobStatus) {
	uc.log.Info().
		Str("job_id", job.ID).
		Str("actor_id", actor.ID).
		Str("action", string(action)).
		Str("from", string(from)).
		Str("to", string(job.Status)).
		Int("duration_minutes", job.DurationMinutes).
		Msg("transición")
}

func normalizeVIN(vin string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(vin))
	if v == "" {
		return "", fmt.Errorf("%w: vin es requerido", domain.ErrInvalidInput)
	}
	return v, nil
}

// DurationHours minutos a horas con dos decimales.
func DurationHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

func toJobResponse(j *entity.Job) *dto.JobResponse {
	techs := make([]dto.TechnicianSessionResponse, 0, len(j.ActiveTechnicians))
	for _, s := range j.ActiveTechnicians {
		techs = append(techs, dto.TechnicianSessionResponse{
			TechnicianID: s.TechnicianID,
			SessionStart: s.SessionStart,
			SessionEnd:   s.SessionEnd,
		})
	}
	history := make([]dto.QCReviewResponse, 0, len(j.QCHistory))
	for _, r := range j.QCHistory {
		history = append(history, dto.QCReviewResponse{
			ReviewerID:     r.ReviewerID,
			ReviewerRole:   string(r.ReviewerRole),
			EmployeeNumber: r.EmployeeNumber,
			Passed:         r.Passed,
			Notes:          r.Notes,
			DecidedAt:      r.DecidedAt,
		})
	}
	assigned := append([]string{}, j.AssignedTechnicianIDs...)
	return &dto.JobResponse{
		ID:                    j.ID,
		VIN:                   j.VIN,
		StockNumber:           j.StockNumber,
		VehicleDescription:    j.VehicleDescription,
		ServiceType:           j.ServiceType,
		Status:                string(j.Status),
		AssignedTechnicianIDs: assigned,
		ActiveTechnicians:     techs,
		StartTime:             j.StartTime,
		PausedAt:              j.PausedAt,
		PauseReason:           j.PauseReason,
		PauseDurationMinutes:  j.PauseDurationMinutes,
		EndTime:               j.EndTime,
		CompletedAt:           j.CompletedAt,
		DurationMinutes:       j.DurationMinutes,
		DurationHours:         DurationHours(j.DurationMinutes),
		QCRequired:            j.QCRequired,
		QCCompletedBy:         j.QCCompletedBy,
		QCCompletedAt:         j.QCCompletedAt,
		QCNotes:               j.QCNotes,
		QCEmployeeNumber:      j.QCEmployeeNumber,
		QCHistory:             history,
		CancelledAt:           j.CancelledAt,
		CancelledBy:           j.CancelledBy,
		Version:               j.Version,
		CreatedAt:             j.CreatedAt,
		UpdatedAt:             j.UpdatedAt,
	}
}
