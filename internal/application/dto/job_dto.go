package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateJobRequest alta de un trabajo en Pending.
type CreateJobRequest struct {
	VIN                string `json:"vin" validate:"required"`
	StockNumber        string `json:"stock_number"`
	VehicleDescription string `json:"vehicle_description"`
	ServiceType        string `json:"service_type"`
	QCRequired         bool   `json:"qc_required"`
	TechnicianID       string `json:"technician_id"`
}

// JoinJobRequest un técnico se une al trabajo abierto del VIN o crea uno en In Progress.
type JoinJobRequest struct {
	VIN                string `json:"vin" validate:"required"`
	StockNumber        string `json:"stock_number"`
	VehicleDescription string `json:"vehicle_description"`
	ServiceType        string `json:"service_type"`
	QCRequired         bool   `json:"qc_required"`
}

// PauseJobRequest motivo opcional de la pausa.
type PauseJobRequest struct {
	Reason string `json:"reason"`
}

// AddTechnicianRequest técnico a agregar.
type AddTechnicianRequest struct {
	TechnicianID string `json:"technician_id" validate:"required"`
}

// QCDecisionRequest decisión de control de calidad.
type QCDecisionRequest struct {
	Passed *bool  `json:"passed" validate:"required"`
	Notes  string `json:"notes"`
}

// TechnicianSessionResponse sesión de un técnico.
type TechnicianSessionResponse struct {
	TechnicianID string     `json:"technician_id"`
	SessionStart time.Time  `json:"session_start"`
	SessionEnd   *time.Time `json:"session_end"`
}

// QCReviewResponse entrada del historial de QC.
type QCReviewResponse struct {
	ReviewerID     string    `json:"reviewer_id"`
	ReviewerRole   string    `json:"reviewer_role"`
	EmployeeNumber string    `json:"employee_number,omitempty"`
	Passed         bool      `json:"passed"`
	Notes          string    `json:"notes,omitempty"`
	DecidedAt      time.Time `json:"decided_at"`
}

// JobResponse forma pública de un trabajo. Los colaboradores externos solo leen esta forma.
type JobResponse struct {
	ID                    string                      `json:"id"`
	VIN                   string                      `json:"vin"`
	StockNumber           string                      `json:"stock_number,omitempty"`
	VehicleDescription    string                      `json:"vehicle_description,omitempty"`
	ServiceType           string                      `json:"service_type,omitempty"`
	Status                string                      `json:"status"`
	AssignedTechnicianIDs []string                    `json:"assigned_technician_ids"`
	ActiveTechnicians     []TechnicianSessionResponse `json:"active_technicians"`
	StartTime             *time.Time                  `json:"start_time"`
	PausedAt              *time.Time                  `json:"paused_at"`
	PauseReason           string                      `json:"pause_reason,omitempty"`
	PauseDurationMinutes  int                         `json:"pause_duration_minutes"`
	EndTime               *time.Time                  `json:"end_time"`
	CompletedAt           *time.Time                  `json:"completed_at"`
	DurationMinutes       int                         `json:"duration_minutes"`
	DurationHours         decimal.Decimal             `json:"duration_hours"`
	QCRequired            bool                        `json:"qc_required"`
	QCCompletedBy         string                      `json:"qc_completed_by,omitempty"`
	QCCompletedAt         *time.Time                  `json:"qc_completed_at"`
	QCNotes               string                      `json:"qc_notes,omitempty"`
	QCEmployeeNumber      string                      `json:"qc_employee_number,omitempty"`
	QCHistory             []QCReviewResponse          `json:"qc_history"`
	CancelledAt           *time.Time                  `json:"cancelled_at,omitempty"`
	CancelledBy           string                      `json:"cancelled_by,omitempty"`
	Version               int64                       `json:"version"`
	CreatedAt             time.Time                   `json:"created_at"`
	UpdatedAt             time.Time                   `json:"updated_at"`
}

// JobListResponse lista paginada de trabajos.
type JobListResponse struct {
	Items []JobResponse `json:"items"`
	Page  PageResponse  `json:"page"`
}
