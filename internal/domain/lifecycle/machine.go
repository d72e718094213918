package lifecycle

import (
	"fmt"
	"time"

	"github.com/jhoicas/recon-api/internal/domain/entity"
)

// Start Pending → In Progress, Paused → In Progress (reanudar) o QC Required → In Progress (retrabajo).
// StartTime se fija solo la primera vez. Un detailer que inicia queda como técnico del trabajo.
func Start(job *entity.Job, actor Actor, now time.Time) error {
	if !CanTransition(job.Status, ActionStart) {
		return illegal(job.Status, ActionStart)
	}
	switch job.Status {
	case entity.JobStatusPaused:
		closePause(job, now)
	case entity.JobStatusQCRequired:
		// El tiempo esperando QC no cuenta como trabajado.
		if job.CompletedAt != nil {
			job.PauseDurationMinutes += minutesBetween(*job.CompletedAt, now)
		}
		job.EndTime = nil
		job.CompletedAt = nil
		job.DurationMinutes = 0
	}
	if job.StartTime == nil {
		job.StartTime = timePtr(now)
	}
	job.Status = entity.JobStatusInProgress
	if actor.Role == entity.RoleDetailer {
		joinTechnician(job, actor.ID, now)
	}
	job.UpdatedAt = now
	return nil
}

// Pause In Progress → Paused.
func Pause(job *entity.Job, now time.Time, reason string) error {
	if !CanTransition(job.Status, ActionPause) {
		return illegal(job.Status, ActionPause)
	}
	job.Status = entity.JobStatusPaused
	job.PausedAt = timePtr(now)
	job.PauseReason = reason
	job.UpdatedAt = now
	return nil
}

// AddTechnician agrega el técnico si no tiene una sesión abierta. Repetirlo no es error.
func AddTechnician(job *entity.Job, technicianID string, now time.Time) error {
	if !CanTransition(job.Status, ActionAddTechnician) {
		return illegal(job.Status, ActionAddTechnician)
	}
	joinTechnician(job, technicianID, now)
	job.UpdatedAt = now
	return nil
}

// Complete In Progress/Paused → Completed, o QC Required si el trabajo exige QC.
func Complete(job *entity.Job, now time.Time) error {
	if !CanTransition(job.Status, ActionComplete) {
		return illegal(job.Status, ActionComplete)
	}
	if job.Status == entity.JobStatusPaused {
		closePause(job, now)
	}
	if job.QCRequired {
		job.Status = entity.JobStatusQCRequired
	} else {
		job.Status = entity.JobStatusCompleted
	}
	if job.EndTime == nil {
		job.EndTime = timePtr(now)
	}
	job.CompletedAt = timePtr(now)
	job.DurationMinutes = Duration(job)
	closeSessions(job, now)
	job.UpdatedAt = now
	return nil
}

// QCDecision registra la decisión de QC. Aprobado → QC Approved; rechazado → QC Required (retrabajo).
// La autorización del revisor es responsabilidad de AuthorizeQC.
func QCDecision(job *entity.Job, reviewer Actor, passed bool, notes string, now time.Time) error {
	if !CanTransition(job.Status, ActionQCDecision) {
		return illegal(job.Status, ActionQCDecision)
	}
	job.QCHistory = append(job.QCHistory, entity.QCReview{
		ReviewerID:     reviewer.ID,
		ReviewerRole:   reviewer.Role,
		EmployeeNumber: reviewer.EmployeeNumber,
		Passed:         passed,
		Notes:          notes,
		DecidedAt:      now,
	})
	job.QCNotes = notes
	if !passed {
		job.Status = entity.JobStatusQCRequired
		job.QCRequired = true
		job.UpdatedAt = now
		return nil
	}
	job.Status = entity.JobStatusQCApproved
	job.QCCompletedBy = reviewer.ID
	job.QCCompletedAt = timePtr(now)
	job.QCEmployeeNumber = reviewer.EmployeeNumber
	if job.EndTime == nil {
		job.EndTime = timePtr(now)
	}
	if job.CompletedAt == nil {
		job.CompletedAt = timePtr(now)
	}
	job.DurationMinutes = Duration(job)
	job.UpdatedAt = now
	return nil
}

// Cancel cualquier estado no terminal → Cancelled. Cierra la pausa abierta para mantener
// la invariante pausedAt ⟺ Paused.
func Cancel(job *entity.Job, actor Actor, now time.Time) error {
	if !CanTransition(job.Status, ActionCancel) {
		return illegal(job.Status, ActionCancel)
	}
	if job.Status == entity.JobStatusPaused {
		closePause(job, now)
	}
	if job.EndTime == nil {
		job.EndTime = timePtr(now)
	}
	job.DurationMinutes = Duration(job)
	job.Status = entity.JobStatusCancelled
	job.CancelledAt = timePtr(now)
	job.CancelledBy = actor.ID
	closeSessions(job, now)
	job.UpdatedAt = now
	return nil
}

// Duration aplica Elapsed a los tiempos del trabajo; 0 si nunca inició o no terminó.
func Duration(job *entity.Job) int {
	if job.StartTime == nil || job.EndTime == nil {
		return 0
	}
	return Elapsed(*job.StartTime, *job.EndTime, job.PauseDurationMinutes)
}

// CheckInvariants verifica pausedAt ⟺ Paused y que la duración persistida
// coincida con la fórmula en trabajos Completed y QC Approved.
func CheckInvariants(job *entity.Job) error {
	paused := job.Status == entity.JobStatusPaused
	if paused != (job.PausedAt != nil) {
		return fmt.Errorf("invariante: status=%q con pausedAt=%v", job.Status, job.PausedAt)
	}
	if job.PauseDurationMinutes < 0 || job.DurationMinutes < 0 {
		return fmt.Errorf("invariante: minutos negativos (pausa=%d, duración=%d)", job.PauseDurationMinutes, job.DurationMinutes)
	}
	switch job.Status {
	case entity.JobStatusCompleted, entity.JobStatusQCApproved:
		if job.CompletedAt == nil {
			return fmt.Errorf("invariante: %q sin completedAt", job.Status)
		}
		if want := Duration(job); job.DurationMinutes != want {
			return fmt.Errorf("invariante: durationMinutes=%d, esperado %d", job.DurationMinutes, want)
		}
	}
	return nil
}

func closePause(job *entity.Job, now time.Time) {
	if job.PausedAt != nil {
		job.PauseDurationMinutes += minutesBetween(*job.PausedAt, now)
	}
	job.PausedAt = nil
	job.PauseReason = ""
}

func joinTechnician(job *entity.Job, technicianID string, now time.Time) {
	if !job.HasTechnician(technicianID) {
		job.AssignedTechnicianIDs = append(job.AssignedTechnicianIDs, technicianID)
	}
	for _, s := range job.ActiveTechnicians {
		if s.TechnicianID == technicianID && s.IsOpen() {
			return
		}
	}
	job.ActiveTechnicians = append(job.ActiveTechnicians, entity.TechnicianSession{
		TechnicianID: technicianID,
		SessionStart: now,
	})
}

func closeSessions(job *entity.Job, now time.Time) {
	for i := range job.ActiveTechnicians {
		if job.ActiveTechnicians[i].IsOpen() {
			job.ActiveTechnicians[i].SessionEnd = timePtr(now)
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
