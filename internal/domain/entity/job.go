package entity

import (
	"fmt"
	"time"
)

// JobStatus estado del ciclo de vida de un trabajo de reacondicionamiento.
type JobStatus string

// Estados del trabajo. Los valores string son los que ve el cliente.
const (
	JobStatusPending    JobStatus = "Pending"
	JobStatusInProgress JobStatus = "In Progress"
	JobStatusPaused     JobStatus = "Paused"
	JobStatusCompleted  JobStatus = "Completed"
	JobStatusQCRequired JobStatus = "QC Required"
	JobStatusQCApproved JobStatus = "QC Approved"
	JobStatusCancelled  JobStatus = "Cancelled"
)

// ParseJobStatus convierte un string al enum JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusPending, JobStatusInProgress, JobStatusPaused, JobStatusCompleted,
		JobStatusQCRequired, JobStatusQCApproved, JobStatusCancelled:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("estado de trabajo desconocido %q", s)
}

// IsTerminal QC Approved y Cancelled no admiten más transiciones.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusQCApproved || s == JobStatusCancelled
}

// TechnicianSession tramo de trabajo de un técnico sobre el trabajo.
type TechnicianSession struct {
	TechnicianID string     `json:"technician_id"`
	SessionStart time.Time  `json:"session_start"`
	SessionEnd   *time.Time `json:"session_end,omitempty"`
}

// IsOpen la sesión no ha sido cerrada.
func (s TechnicianSession) IsOpen() bool {
	return s.SessionEnd == nil
}

// QCReview una decisión de control de calidad (aprobada o rechazada).
type QCReview struct {
	ReviewerID     string    `json:"reviewer_id"`
	ReviewerRole   Role      `json:"reviewer_role"`
	EmployeeNumber string    `json:"employee_number,omitempty"`
	Passed         bool      `json:"passed"`
	Notes          string    `json:"notes,omitempty"`
	DecidedAt      time.Time `json:"decided_at"`
}

// Job trabajo de reacondicionamiento de un vehículo.
// Status y todos los campos de tiempo solo los modifica el paquete lifecycle.
type Job struct {
	ID                 string
	VIN                string
	StockNumber        string
	VehicleDescription string
	ServiceType        string

	Status                JobStatus
	AssignedTechnicianIDs []string
	ActiveTechnicians     []TechnicianSession

	StartTime            *time.Time
	PausedAt             *time.Time
	PauseReason          string
	PauseDurationMinutes int
	EndTime              *time.Time
	CompletedAt          *time.Time
	DurationMinutes      int

	QCRequired       bool
	QCCompletedBy    string
	QCCompletedAt    *time.Time
	QCNotes          string
	QCEmployeeNumber string
	QCHistory        []QCReview

	CancelledAt *time.Time
	CancelledBy string

	CreatedBy string
	// Version contador de revisión para escrituras optimistas.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTechnician indica si el usuario figura entre los técnicos asignados.
func (j *Job) HasTechnician(userID string) bool {
	for _, id := range j.AssignedTechnicianIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone copia profunda; los repositorios en memoria la usan para no compartir punteros.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.AssignedTechnicianIDs = append([]string(nil), j.AssignedTechnicianIDs...)
	if j.ActiveTechnicians != nil {
		c.ActiveTechnicians = make([]TechnicianSession, len(j.ActiveTechnicians))
		for i, s := range j.ActiveTechnicians {
			s.SessionEnd = cloneTime(s.SessionEnd)
			c.ActiveTechnicians[i] = s
		}
	}
	c.QCHistory = append([]QCReview(nil), j.QCHistory...)
	c.StartTime = cloneTime(j.StartTime)
	c.PausedAt = cloneTime(j.PausedAt)
	c.EndTime = cloneTime(j.EndTime)
	c.CompletedAt = cloneTime(j.CompletedAt)
	c.QCCompletedAt = cloneTime(j.QCCompletedAt)
	c.CancelledAt = cloneTime(j.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
